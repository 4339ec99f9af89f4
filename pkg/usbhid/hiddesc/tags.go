package hiddesc

// Main items: xxxx 00 xx
// Global items: xxxx 01 xx
// Local items: xxxx 10 xx
// These constants only contain the first 6 bits. Size is determined by the last two bits.
const (
	TagInput         Tag = 0x80 // 1000 00xx + DataFlags
	TagOutput        Tag = 0x90 // 1001 00xx + DataFlags
	TagFeature       Tag = 0xB0 // 1011 00xx + DataFlags
	TagCollection    Tag = 0xA0 // 1010 00xx + CollectionType
	TagEndCollection Tag = 0xC0 // 1100 0000

	TagUsagePage       Tag = 0x04 // 0000 01xx + UsagePage
	TagLogicalMinimum  Tag = 0x14 // 0001 01xx + int
	TagLogicalMaximum  Tag = 0x24 // 0010 01xx + int
	TagPhysicalMinimum Tag = 0x34 // 0011 01xx + int
	TagPhysicalMaximum Tag = 0x44 // 0100 01xx + int
	TagUnitExponent    Tag = 0x54 // 0101 01xx + int
	TagUnit            Tag = 0x64 // 0110 01xx + int
	TagReportSize      Tag = 0x74 // 0111 01xx + int
	TagReportID        Tag = 0x84 // 1000 01xx + int
	TagReportCount     Tag = 0x94 // 1001 01xx + int

	TagUsage        Tag = 0x08 // 0000 10xx + UsageID
	TagUsageMinimum Tag = 0x18 // 0001 10xx + int
	TagUsageMaximum Tag = 0x28 // 0010 10xx + int
)

type Tag uint8

type TagItemSize uint8

const (
	TagItemSize0 TagItemSize = iota
	TagItemSize8
	TagItemSize16
	TagItemSize32
)

func (t Tag) WithItemSize(size TagItemSize) Tag {
	return t.TagPrefix() | Tag(size)
}

func (t Tag) PayloadSize() TagItemSize {
	return TagItemSize(t & 0x03)
}

func (t Tag) TagPrefix() Tag {
	return t & 0xFC
}

// Usage pages used by keyboard composite devices.
const (
	UsagePageGenericDesktop uint16 = 0x01
	UsagePageKeyboard       uint16 = 0x07
	UsagePageLED            uint16 = 0x08
	UsagePageButton         uint16 = 0x09
	UsagePageConsumer       uint16 = 0x0C
)

// Generic Desktop usages.
const (
	UsagePointer  uint16 = 0x01
	UsageMouse    uint16 = 0x02
	UsageJoystick uint16 = 0x04
	UsageKeyboard uint16 = 0x06
	UsageX        uint16 = 0x30
	UsageY        uint16 = 0x31
	UsageZ        uint16 = 0x32
	UsageRz       uint16 = 0x35
	UsageWheel    uint16 = 0x38

	UsageConsumerControl uint16 = 0x01
	UsageACPan           uint16 = 0x0238
)
