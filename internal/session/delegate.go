package session

import (
	"bytes"
	"net/http"
	"os"

	"github.com/GriffinCanCode/netkit/internal/serializer"
)

// DataCompletion receives the outcome of a data or upload task. value is
// what the response serializer produced; it is nil whenever err is set.
type DataCompletion func(resp *http.Response, value any, err error)

// DownloadCompletion receives the outcome of a download task. path is the
// final location of the file; it is empty whenever err is set.
type DownloadCompletion func(resp *http.Response, path string, err error)

// delegate is the per-task record held in the registry. Fields beyond
// task and serializer are used according to task.kind.
type delegate struct {
	task       *Task
	serializer serializer.ResponseSerializer

	// data, upload
	buf            bytes.Buffer
	dataCompletion DataCompletion

	// download
	destination        Destination
	downloadCompletion DownloadCompletion
	file               *os.File
	tempPath           string
}

func (d *delegate) kind() Kind {
	return d.task.kind
}

func (d *delegate) hasCompletion() bool {
	switch d.kind() {
	case KindDownload:
		return d.downloadCompletion != nil
	default:
		return d.dataCompletion != nil
	}
}

func (d *delegate) deliver(resp *http.Response, value any, err error) {
	switch d.kind() {
	case KindDownload:
		if d.downloadCompletion == nil {
			return
		}
		path, _ := value.(string)
		d.downloadCompletion(resp, path, err)
	default:
		if d.dataCompletion == nil {
			return
		}
		d.dataCompletion(resp, value, err)
	}
}

// discardTemp closes and removes the download temp file, if any
func (d *delegate) discardTemp() error {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
	if d.tempPath == "" {
		return nil
	}
	path := d.tempPath
	d.tempPath = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
