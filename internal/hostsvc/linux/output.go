package linux

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/psanford/uhid"
	"go.uber.org/zap"
)

type OutputConfig struct {
	Name      string `json:"name"`
	VendorID  uint32 `json:"vendorId"`
	ProductID uint32 `json:"productId"`
}

type uhidReportType uint8

const (
	uhidReportTypeFeature uhidReportType = 0
	uhidReportTypeOutput  uhidReportType = 1
	uhidReportTypeInput   uhidReportType = 2
)

const uhidDataMax = 4096

type outputRequest struct {
	Data       [uhidDataMax]byte
	Size       uint16
	ReportType uhidReportType
}

type getReportRequest struct {
	RequestID  uint32
	ReportID   uint8
	ReportType uhidReportType
}

type getReportReply struct {
	EventType uhid.EventType
	RequestID uint32
	Error     uint16
	Size      uint16
	Data      [uhidDataMax]byte
}

type setReportRequest struct {
	RequestID  uint32
	ReportID   uint8
	ReportType uhidReportType
	Size       uint16
	Data       [uhidDataMax]byte
}

type setReportReply struct {
	EventType uhid.EventType
	RequestID uint32
	Error     uint16
}

// outputDevice is the composite keyboard the computer sees.
type outputDevice struct {
	log    *zap.Logger
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	dev    *uhid.Device
	events chan uhid.Event
	onLEDs func(hostapi.LockLEDs)
}

func openOutputDevice(ctx context.Context, log *zap.Logger, config OutputConfig, descriptor []byte, onLEDs func(hostapi.LockLEDs)) (*outputDevice, error) {
	uhidDev, err := uhid.NewDevice(config.Name, descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to create uhid device: %w", err)
	}
	uhidDev.Data.Bus = 0x03
	uhidDev.Data.VendorID = config.VendorID
	uhidDev.Data.ProductID = config.ProductID

	ctx, cancel := context.WithCancel(ctx)
	events, err := uhidDev.Open(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open uhid device: %w", err)
	}
	d := &outputDevice{
		log:    log,
		name:   config.Name,
		ctx:    ctx,
		cancel: cancel,
		dev:    uhidDev,
		events: events,
		onLEDs: onLEDs,
	}
	go d.run()
	return d, nil
}

func (d *outputDevice) ID() string {
	return "uhid:" + d.name
}

func (d *outputDevice) run() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.events:
			if !ok {
				return
			}
			switch event.Type {
			case uhid.Output:
				d.handleOutput(event.Data)
			case uhid.GetReport:
				d.handleGetReport(event.Data)
			case uhid.SetReport:
				d.handleSetReport(event.Data)
			}
		}
	}
}

func (d *outputDevice) handleOutput(data []byte) {
	var req outputRequest
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &req); err != nil {
		d.log.Error("failed to read output request", zap.Error(err))
		return
	}
	if req.ReportType != uhidReportTypeOutput {
		return
	}
	d.setLEDs(req.Data[:min(int(req.Size), uhidDataMax)])
}

func (d *outputDevice) setLEDs(report []byte) bool {
	leds, ok := hostsvc.ParseLEDReport(report)
	if !ok {
		d.log.Debug("Ignored output report", zap.Binary("report", report))
		return false
	}
	d.onLEDs(leds)
	return true
}

// Input reports are only ever sent, never polled; GET_REPORT is refused.
func (d *outputDevice) handleGetReport(data []byte) {
	var req getReportRequest
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &req); err != nil {
		d.log.Error("failed to read GetReport request", zap.Error(err))
		return
	}
	d.log.Debug("GetReport request", zap.Uint8("reportID", req.ReportID), zap.Uint8("type", uint8(req.ReportType)))
	err := d.dev.WriteEvent(getReportReply{
		EventType: uhid.GetReportReply,
		RequestID: req.RequestID,
		Error:     1,
	})
	if err != nil {
		d.log.Error("failed to write GetReport reply", zap.Error(err))
	}
}

func (d *outputDevice) handleSetReport(data []byte) {
	var req setReportRequest
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &req); err != nil {
		d.log.Error("failed to read SetReport request", zap.Error(err))
		return
	}
	reply := setReportReply{
		EventType: uhid.SetReportReply,
		RequestID: req.RequestID,
	}
	report := req.Data[:min(int(req.Size), uhidDataMax)]
	if req.ReportType != uhidReportTypeOutput || !d.setLEDs(report) {
		reply.Error = 1
	}
	if err := d.dev.WriteEvent(reply); err != nil {
		d.log.Error("failed to write SetReport reply", zap.Error(err))
	}
}

func (d *outputDevice) Write(report []byte) error {
	return d.dev.InjectEvent(report)
}

func (d *outputDevice) Close() error {
	d.cancel()
	return d.dev.Close()
}
