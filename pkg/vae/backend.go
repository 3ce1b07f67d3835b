package vae

import (
	"strings"

	"github.com/gomlx/gomlx/backends"
	"k8s.io/klog/v2"
)

// ExpectedBackend is the backend the model is tuned and tested for. Other backends work, but New logs a warning.
const ExpectedBackend = "xla"

// checkBackend logs a warning if the backend is not ExpectedBackend. It returns whether it matched.
func checkBackend(backend backends.Backend) bool {
	name := backend.Name()
	if name == ExpectedBackend || strings.HasPrefix(name, ExpectedBackend+":") {
		return true
	}
	klog.Warningf("vae: backend is %q (%s), expected %q", name, backend.Description(), ExpectedBackend)
	return false
}
