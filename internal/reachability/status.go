package reachability

// Status classifies current network connectivity
type Status int

const (
	StatusUnknown Status = iota
	StatusNotReachable
	StatusReachableViaCellular
	StatusReachableViaWiFi
)

// String returns a human-readable description of the status
func (s Status) String() string {
	switch s {
	case StatusNotReachable:
		return "Not Reachable"
	case StatusReachableViaCellular:
		return "Reachable via Cellular"
	case StatusReachableViaWiFi:
		return "Reachable via WiFi"
	default:
		return "Unknown"
	}
}

// Reachable reports whether the status is one of the reachable values
func (s Status) Reachable() bool {
	return s == StatusReachableViaCellular || s == StatusReachableViaWiFi
}
