package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID is an app-scoped hash of the machine id, empty when the platform does not expose one.
var HWID = func() string {
	id, err := machineid.ProtectedID("niraclient")
	if err != nil {
		return ""
	}
	return id
}()
