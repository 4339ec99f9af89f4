package linux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/neuroplastio/neio-stick/pkg/bits"
	"github.com/sstallion/go-hid"
	"go.uber.org/zap"
)

const maxSample = 1023

type HidAddress struct {
	VendorID  uint16
	ProductID uint16
	Interface int
}

func (a HidAddress) String() string {
	return fmt.Sprintf("%04x:%04x:%d", a.VendorID, a.ProductID, a.Interface)
}

func ParseHidAddress(s string) (HidAddress, error) {
	var addr HidAddress
	_, err := fmt.Sscanf(s, "%04x:%04x:%d", &addr.VendorID, &addr.ProductID, &addr.Interface)
	if err != nil {
		return HidAddress{}, fmt.Errorf("invalid HID address %q: %w", s, err)
	}
	return addr, nil
}

// BridgeConfig describes the input report of the ADC bridge: an optional
// report ID, one little-endian uint16 sample per pin, then one bit per key in
// row-major order.
type BridgeConfig struct {
	Address  string `json:"address"`
	ReportID uint8  `json:"reportId"`
	Pins     int    `json:"pins"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
}

func (c BridgeConfig) Validate() error {
	if _, err := ParseHidAddress(c.Address); err != nil {
		return err
	}
	if c.Pins <= 0 {
		return errors.New("at least one pin is required")
	}
	if c.Rows <= 0 || c.Cols <= 0 || c.Rows > 256 || c.Cols > 256 {
		return fmt.Errorf("invalid matrix size %dx%d", c.Rows, c.Cols)
	}
	return nil
}

func (c BridgeConfig) keyCount() int {
	return c.Rows * c.Cols
}

func (c BridgeConfig) reportSize() int {
	size := 2*c.Pins + (c.keyCount()+7)/8
	if c.ReportID != 0 {
		size++
	}
	return size
}

func (c BridgeConfig) position(bit int) hostapi.KeyPosition {
	return hostapi.KeyPosition{Row: uint8(bit / c.Cols), Col: uint8(bit % c.Cols)}
}

type bridgeReport struct {
	samples []uint16
	keys    bits.Bits
}

func (c BridgeConfig) parseReport(data []byte) (bridgeReport, error) {
	if len(data) < c.reportSize() {
		return bridgeReport{}, fmt.Errorf("short bridge report: %d < %d bytes", len(data), c.reportSize())
	}
	if c.ReportID != 0 {
		if data[0] != c.ReportID {
			return bridgeReport{}, fmt.Errorf("unexpected report ID %d", data[0])
		}
		data = data[1:]
	}
	report := bridgeReport{samples: make([]uint16, c.Pins)}
	for i := range report.samples {
		v := uint16(data[2*i]) | uint16(data[2*i+1])<<8
		report.samples[i] = min(v, maxSample)
	}
	keyBytes := make([]byte, (c.keyCount()+7)/8)
	copy(keyBytes, data[2*c.Pins:])
	report.keys = bits.New(keyBytes, len(keyBytes)*8-c.keyCount())
	return report, nil
}

func generateName(device hid.DeviceInfo) string {
	var parts []string
	if device.MfrStr != "" {
		parts = append(parts, device.MfrStr)
	}
	if device.ProductStr != "" {
		parts = append(parts, device.ProductStr)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", device.VendorID, device.ProductID)
	}
	return strings.Join(parts, " ")
}

type bridgeDevice struct {
	b      *Backend
	log    *zap.Logger
	config BridgeConfig
	addr   HidAddress
	info   hid.DeviceInfo
	dev    *hid.Device
}

func (b *Backend) openBridge() (*bridgeDevice, error) {
	addr, err := ParseHidAddress(b.config.Bridge.Address)
	if err != nil {
		return nil, err
	}
	var info *hid.DeviceInfo
	err = hid.Enumerate(addr.VendorID, addr.ProductID, func(device *hid.DeviceInfo) error {
		if device.InterfaceNbr == addr.Interface {
			d := *device
			info = &d
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate HID devices: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("bridge not found: %s", addr)
	}
	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bridge %s: %w", addr, err)
	}
	return &bridgeDevice{
		b:      b,
		log:    b.log,
		config: b.config.Bridge,
		addr:   addr,
		info:   *info,
		dev:    dev,
	}, nil
}

func (d *bridgeDevice) ID() string {
	return "hid:" + d.addr.String()
}

func (d *bridgeDevice) Name() string {
	return generateName(d.info)
}

// Acquire detaches the kernel input devices bound to the bridge so its keys
// do not also reach the system as a regular keyboard. The returned function
// reattaches them.
func (d *bridgeDevice) Acquire() (func(), error) {
	hidrawDev := d.b.udev.NewDeviceFromSubsystemSysname("hidraw", filepath.Base(d.info.Path))
	if hidrawDev == nil {
		return nil, fmt.Errorf("hidraw device %s not found in udev", d.info.Path)
	}
	hidDev := hidrawDev.Parent()
	e := d.b.udev.NewEnumerate()
	e.AddMatchSubsystem("input")
	e.AddMatchParent(hidDev)
	inputs, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate input devices: %w", err)
	}
	var detached []string
	for _, inputDev := range inputs {
		syspath := inputDev.Syspath()
		if !strings.HasPrefix(filepath.Base(syspath), "event") {
			continue
		}
		err := os.WriteFile(syspath+"/uevent", []byte("remove"), 0644)
		if err != nil {
			d.log.Error("failed to detach the input", zap.String("syspath", syspath), zap.Error(err))
			continue
		}
		detached = append(detached, syspath)
	}
	return func() {
		for _, syspath := range detached {
			err := os.WriteFile(syspath+"/uevent", []byte("add"), 0644)
			if err != nil {
				d.log.Error("failed to attach the input", zap.String("syspath", syspath), zap.Error(err))
			}
		}
	}, nil
}

// Run reads bridge reports until ctx is done. Samples are handed over on every
// report, key changes only when a key bit flips.
func (d *bridgeDevice) Run(ctx context.Context, timeout time.Duration, onSamples func([]uint16), onKey func(hostsvc.KeyChange)) error {
	buf := make([]byte, max(64, d.config.reportSize()))
	prev := bits.NewZeros(d.config.keyCount())
	for ctx.Err() == nil {
		n, err := d.dev.ReadWithTimeout(buf, timeout)
		if errors.Is(err, hid.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read bridge report: %w", err)
		}
		report, err := d.config.parseReport(buf[:n])
		if err != nil {
			d.log.Warn("Dropped bridge report", zap.Error(err))
			continue
		}
		onSamples(report.samples)
		report.keys.EachChanged(prev, func(bit int, set bool) bool {
			onKey(hostsvc.KeyChange{Position: d.config.position(bit), Pressed: set})
			return true
		})
		prev = report.keys
	}
	return nil
}

func (d *bridgeDevice) Close() error {
	return d.dev.Close()
}
