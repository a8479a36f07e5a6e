package session

import "net/http"

// Hooks are lower-level observers called for every task of a manager,
// in addition to per-task completions. All fields are optional. Hooks run
// on the task's goroutine; per task, data and progress hooks always
// precede TaskDidComplete.
type Hooks struct {
	// DataTaskDidReceiveData is called for each chunk of a data or upload
	// task's response body. data is only valid during the call.
	DataTaskDidReceiveData func(t *Task, data []byte)

	// TaskDidSendBodyData reports upload progress
	TaskDidSendBodyData func(t *Task, sent, total int64)

	// DownloadTaskDidWriteData reports bytes written to a download's
	// temporary file
	DownloadTaskDidWriteData func(t *Task, written, total int64)

	// TaskDidComplete is called once per task after its completion. value
	// is the deserialized body, or the final path for downloads. Tasks
	// created without a completion report only here.
	TaskDidComplete func(t *Task, resp *http.Response, value any, err error)
}
