/*
Package neterr provides the error kinds shared by every netkit package.

# Overview

All failures reach the caller through a task's completion callback as a
*neterr.Error. The Kind field tells transport failures apart from
serializer and filesystem failures; the channel never does.

# Usage

	if errors.Is(err, neterr.KindValidation) {
		log.Printf("server said %d", neterr.StatusCode(err))
	}

	var e *neterr.Error
	if errors.As(err, &e) && e.Kind == neterr.KindTransport {
		// connectivity problem, maybe consult reachability
	}
*/
package neterr
