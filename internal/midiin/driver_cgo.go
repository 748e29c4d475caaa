//go:build cgo

package midiin

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// OpenDriver opens the RtMidi driver.
func OpenDriver() (*DriverSource, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midiin: %w", err)
	}
	return &DriverSource{drv: drv}, nil
}
