//go:build !linux

package hardware

import (
	"context"
	"errors"
	"time"
)

const DefaultI2CDev = "/dev/i2c-1"

var errNoI2CDev = errors.New("i2c: i2c-dev is only available on linux")

// I2CDriver is unavailable off linux; Init always fails.
type I2CDriver struct {
	path string
}

func NewI2C(path string) *I2CDriver {
	if path == "" {
		path = DefaultI2CDev
	}
	return &I2CDriver{path: path}
}

func (d *I2CDriver) Init(ctx context.Context) error { return errNoI2CDev }
func (d *I2CDriver) Read(ctx context.Context, addr uint16, reg Register, buf []byte) error {
	return errNoI2CDev
}
func (d *I2CDriver) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	return errNoI2CDev
}
func (d *I2CDriver) Delay(ctx context.Context, dur time.Duration) error { return sleep(ctx, dur) }
func (d *I2CDriver) Name() string                                        { return "i2c-dev:" + d.path }
func (d *I2CDriver) IsReal() bool                                        { return true }
func (d *I2CDriver) Close() error                                        { return nil }
