//go:build windows

package permissions

// AdjustOwnership is a no-op on Windows, which has no Unix ownership
// model. Field devices run Linux; this keeps development builds working.
func AdjustOwnership(dir, principal string) (bool, error) {
	return false, nil
}
