//go:build !cgo

package midiin

// OpenDriver reports ErrNoDriver: RtMidi needs cgo.
func OpenDriver() (*DriverSource, error) {
	return nil, ErrNoDriver
}
