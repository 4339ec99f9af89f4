// Package hiddesc models and encodes USB HID report descriptors.
package hiddesc

type ReportDescriptor struct {
	// Top-level Application Collections
	Collections []Collection
}

type CollectionType uint8

const (
	CollectionTypePhysical CollectionType = iota
	CollectionTypeApplication
	CollectionTypeLogical
	CollectionTypeReport
	CollectionTypeNamedArray
	CollectionTypeUsageSwitch
	CollectionTypeUsageModifier
)

// A Collection item identifies a relationship between two or more data (Input,
// Output, or Feature.) All Main items between the Collection item and the End
// Collection item are included in the collection. Collections may be nested.
type Collection struct {
	Type      CollectionType
	UsagePage uint16
	UsageID   uint16
	// Items contains ordered list of Main Items, including nested collections.
	Items []MainItem
}

type DataFlags uint32

const (
	DataFlagConstant      DataFlags = 1 << iota // 0 = Data is variable, 1 = Data is constant
	DataFlagVariable                            // 0 = Array, 1 = Variable
	DataFlagRelative                            // 0 = Absolute, 1 = Relative
	DataFlagWrap                                // 0 = No wrap, 1 = Wrap
	DataFlagNonLinear                           // 0 = Linear, 1 = Non-linear
	DataFlagNoPreferred                         // 0 = Preferred state, 1 = No preferred
	DataFlagNullState                           // 0 = No null position, 1 = Null state
	DataFlagVolatile                            // 0 = Non-volatile, 1 = Volatile, not applicable to Input
	DataFlagBufferedBytes                       // 0 = Bit field, 1 = Buffered bytes
)

// MainItemType is not a HID item tag but an internal abstraction.
// Input, output and feature items carry mostly the same information.
type MainItemType uint8

const (
	MainItemTypeInput MainItemType = iota
	MainItemTypeOutput
	MainItemTypeFeature
	MainItemTypeCollection
)

// MainItem is a oneOf type.
type MainItem struct {
	Type       MainItemType
	DataItem   *DataItem
	Collection *Collection
}

// DataItem describes ReportCount fields of ReportSize bits sharing one format.
type DataItem struct {
	Flags        DataFlags
	UsagePage    uint16
	UsageIDs     []uint16
	UsageMinimum uint16
	UsageMaximum uint16
	ReportCount  uint32
	ReportSize   uint32
	ReportID     uint8

	LogicalMinimum  int32
	LogicalMaximum  int32
	PhysicalMinimum int32
	PhysicalMaximum int32
	UnitExponent    uint32
	Unit            uint32
}

func Input(item DataItem) MainItem {
	return MainItem{Type: MainItemTypeInput, DataItem: &item}
}

func Output(item DataItem) MainItem {
	return MainItem{Type: MainItemTypeOutput, DataItem: &item}
}

func Nested(collection Collection) MainItem {
	return MainItem{Type: MainItemTypeCollection, Collection: &collection}
}

func (c Collection) Walk(fn func(item MainItem) bool) {
	for _, item := range c.Items {
		if !fn(item) {
			return
		}
		if item.Collection != nil {
			item.Collection.Walk(fn)
		}
	}
}

func (r ReportDescriptor) Walk(fn func(item MainItem) bool) {
	for _, c := range r.Collections {
		c.Walk(fn)
	}
}

// ReportBits returns the size in bits of the report with the given ID and
// type, excluding the report ID byte.
func (r ReportDescriptor) ReportBits(reportID uint8, typ MainItemType) int {
	size := 0
	r.Walk(func(item MainItem) bool {
		if item.Type == typ && item.DataItem != nil && item.DataItem.ReportID == reportID {
			size += int(item.DataItem.ReportCount * item.DataItem.ReportSize)
		}
		return true
	})
	return size
}
