package hiddesc

import (
	"bytes"
	"encoding/binary"
	"io"
)

type globalState struct {
	usagePage       uint16
	logicalMinimum  int32
	logicalMaximum  int32
	physicalMinimum int32
	physicalMaximum int32
	unitExponent    uint32
	unit            uint32
	reportID        uint8
	reportCount     uint32
	reportSize      uint32
}

type localState struct {
	usage        []uint16
	usageMinimum uint16
	usageMaximum uint16
}

// Encoder writes a report descriptor in the short item format. Global items
// are only emitted when they change.
type Encoder struct {
	desc   ReportDescriptor
	w      io.Writer
	global *globalState
	local  *localState
}

func NewDescriptorEncoder(w io.Writer, desc ReportDescriptor) *Encoder {
	return &Encoder{
		desc:   desc,
		w:      w,
		global: &globalState{},
		local:  &localState{},
	}
}

// Encode returns the encoded descriptor bytes.
func Encode(desc ReportDescriptor) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := NewDescriptorEncoder(buf, desc).Encode(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) Encode() error {
	for _, collection := range e.desc.Collections {
		if err := e.encodeCollection(collection); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeCollection(collection Collection) error {
	if err := e.encodeUsagePage(collection.UsagePage); err != nil {
		return err
	}
	if err := e.encodeUsageID(collection.UsageID); err != nil {
		return err
	}
	if err := e.encodeTag8(TagCollection, uint8(collection.Type)); err != nil {
		return err
	}
	e.local = &localState{}
	for _, item := range collection.Items {
		if err := e.encodeMainItem(item); err != nil {
			return err
		}
	}
	if err := e.encodeTag(TagEndCollection); err != nil {
		return err
	}
	e.local = &localState{}
	return nil
}

func (e *Encoder) encodeMainItem(item MainItem) error {
	if item.Collection != nil {
		return e.encodeCollection(*item.Collection)
	}
	if item.DataItem == nil {
		return nil
	}
	data := item.DataItem
	if data.ReportID != e.global.reportID {
		if err := e.encodeTag8(TagReportID, data.ReportID); err != nil {
			return err
		}
		e.global.reportID = data.ReportID
	}
	if data.UsagePage != 0 {
		if err := e.encodeUsagePage(data.UsagePage); err != nil {
			return err
		}
	}
	if err := e.encodeUsages(data.UsageIDs); err != nil {
		return err
	}
	if data.UsageMinimum != e.local.usageMinimum || data.UsageMaximum != e.local.usageMaximum {
		if err := e.encodeTag16(TagUsageMinimum, data.UsageMinimum); err != nil {
			return err
		}
		if err := e.encodeTag16(TagUsageMaximum, data.UsageMaximum); err != nil {
			return err
		}
	}
	if data.LogicalMinimum != e.global.logicalMinimum || data.LogicalMaximum != e.global.logicalMaximum {
		if err := e.encodeTagi32(TagLogicalMinimum, data.LogicalMinimum); err != nil {
			return err
		}
		if err := e.encodeTagi32(TagLogicalMaximum, data.LogicalMaximum); err != nil {
			return err
		}
		e.global.logicalMinimum = data.LogicalMinimum
		e.global.logicalMaximum = data.LogicalMaximum
	}
	if data.PhysicalMinimum != e.global.physicalMinimum || data.PhysicalMaximum != e.global.physicalMaximum {
		if err := e.encodeTagi32(TagPhysicalMinimum, data.PhysicalMinimum); err != nil {
			return err
		}
		if err := e.encodeTagi32(TagPhysicalMaximum, data.PhysicalMaximum); err != nil {
			return err
		}
		e.global.physicalMinimum = data.PhysicalMinimum
		e.global.physicalMaximum = data.PhysicalMaximum
	}
	if data.UnitExponent != e.global.unitExponent {
		if err := e.encodeTag32(TagUnitExponent, data.UnitExponent); err != nil {
			return err
		}
		e.global.unitExponent = data.UnitExponent
	}
	if data.Unit != e.global.unit {
		if err := e.encodeTag32(TagUnit, data.Unit); err != nil {
			return err
		}
		e.global.unit = data.Unit
	}
	if data.ReportCount != e.global.reportCount {
		if err := e.encodeTag32(TagReportCount, data.ReportCount); err != nil {
			return err
		}
		e.global.reportCount = data.ReportCount
	}
	if data.ReportSize != e.global.reportSize {
		if err := e.encodeTag32(TagReportSize, data.ReportSize); err != nil {
			return err
		}
		e.global.reportSize = data.ReportSize
	}
	var err error
	switch item.Type {
	case MainItemTypeInput:
		err = e.encodeTag32(TagInput, uint32(data.Flags))
	case MainItemTypeOutput:
		err = e.encodeTag32(TagOutput, uint32(data.Flags))
	case MainItemTypeFeature:
		err = e.encodeTag32(TagFeature, uint32(data.Flags))
	}
	e.local = &localState{}
	return err
}

func (e *Encoder) encodeUsagePage(usagePage uint16) error {
	if usagePage == e.global.usagePage {
		return nil
	}
	if err := e.encodeTag16(TagUsagePage, usagePage); err != nil {
		return err
	}
	e.global.usagePage = usagePage
	return nil
}

func (e *Encoder) encodeUsages(usageIDs []uint16) error {
	for _, usageID := range usageIDs {
		if err := e.encodeUsageID(usageID); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeUsageID(usageID uint16) error {
	if usageID == 0 {
		return nil
	}
	if err := e.encodeTag16(TagUsage, usageID); err != nil {
		return err
	}
	e.local.usage = append(e.local.usage, usageID)
	return nil
}

func (e *Encoder) encodeTag(tag Tag) error {
	_, err := e.w.Write([]byte{byte(tag.WithItemSize(TagItemSize0))})
	return err
}

func (e *Encoder) encodeTag8(tag Tag, value uint8) error {
	_, err := e.w.Write([]byte{byte(tag.WithItemSize(TagItemSize8)), value})
	return err
}

func (e *Encoder) encodeTag16(tag Tag, value uint16) error {
	if value < 0x100 {
		return e.encodeTag8(tag, uint8(value))
	}
	_, err := e.w.Write([]byte{byte(tag.WithItemSize(TagItemSize16)), byte(value), byte(value >> 8)})
	return err
}

// encodeTagi32 writes a signed value in the shortest two's complement form
// that keeps its sign.
func (e *Encoder) encodeTagi32(tag Tag, value int32) error {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, uint32(value))
	size := TagItemSize32
	switch {
	case value >= -128 && value <= 127:
		size = TagItemSize8
		data = data[:1]
	case value >= -32768 && value <= 32767:
		size = TagItemSize16
		data = data[:2]
	}
	data = append([]byte{byte(tag.WithItemSize(size))}, data...)
	_, err := e.w.Write(data)
	return err
}

func (e *Encoder) encodeTag32(tag Tag, value uint32) error {
	if value < 0x100 {
		return e.encodeTag8(tag, uint8(value))
	}
	if value < 0x10000 {
		return e.encodeTag16(tag, uint16(value))
	}
	_, err := e.w.Write([]byte{byte(tag.WithItemSize(TagItemSize32)), byte(value), byte(value >> 8), byte(value >> 16), byte(value >> 24)})
	return err
}
