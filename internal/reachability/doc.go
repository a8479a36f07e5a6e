// Package reachability reports network connectivity.
//
// A Monitor runs a Probe on an interval and keeps the latest Status.
// Callers read it with Status or receive changes through Subscribe.
//
//	m, err := reachability.ForDomain("api.example.com", 3*time.Second)
//	m.StartMonitoring(ctx)
//	defer m.StopMonitoring()
//
//	changes, unsubscribe := m.Subscribe()
//	defer unsubscribe()
//	for s := range changes {
//		log.Println("network:", s)
//	}
package reachability
