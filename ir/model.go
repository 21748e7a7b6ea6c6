// Package ir defines the typed, canonical intermediate representation
// of a protocol: Spec, Message, Signal, and their nested value types,
// together with a round-trip-stable YAML codec.
//
// The types mirror the Pydantic model specgo's Python original used to
// ingest DBC-derived descriptions (original_source/specgo/ir/model.py),
// ported field-for-field into a closed Go schema.
package ir

// ByteOrder is the bit-ordering convention of a signal.
type ByteOrder string

const (
	LittleEndian ByteOrder = "little_endian"
	BigEndian    ByteOrder = "big_endian"
)

// BusFamily names the transport the spec was lifted from.
type BusFamily string

const (
	BusCAN     BusFamily = "CAN"
	BusUART    BusFamily = "UART"
	BusSPI     BusFamily = "SPI"
	BusI2C     BusFamily = "I2C"
	BusUnknown BusFamily = "unknown"
)

// BusMode distinguishes classic CAN from CAN-FD. Only meaningful when
// BusFamily is BusCAN.
type BusMode string

const (
	BusModeClassic BusMode = "classic"
	BusModeFD      BusMode = "fd"
)

// SourceFormat names the upstream format a Spec was ingested from.
type SourceFormat string

const (
	SourceDBC  SourceFormat = "dbc"
	SourcePDF  SourceFormat = "pdf"
	SourceText SourceFormat = "text"
	SourceMD   SourceFormat = "md"
)

// Meta carries identity and provenance information about a Spec.
type Meta struct {
	Name    string       `yaml:"name"`
	Version string       `yaml:"version"`
	Source  string       `yaml:"source"`
	Format  SourceFormat `yaml:"format"`
}

// BusType describes the physical/link-layer bus a Spec targets.
type BusType struct {
	BusFamily      BusFamily `yaml:"bustype"`
	BusMode        BusMode   `yaml:"busmode,omitempty"`
	SupportedBauds []int     `yaml:"sup_bitrates,omitempty"`
}

// EnumEntry is one named integer value of a signal's enumeration.
type EnumEntry struct {
	Name        string `yaml:"name"`
	Value       int64  `yaml:"value"`
	Description string `yaml:"description,omitempty"`
}

// Signal is a named bit-field within a Message's payload.
type Signal struct {
	Name      string      `yaml:"name"`
	StartBit  int         `yaml:"start_bit"`
	BitLength int         `yaml:"bit_length"`
	ByteOrder ByteOrder   `yaml:"byte_order"`
	Signed    bool        `yaml:"signed"`
	Scale     float64     `yaml:"scale"`
	Offset    float64     `yaml:"offset"`
	Min       *float64    `yaml:"min,omitempty"`
	Max       *float64    `yaml:"max,omitempty"`
	Default   *float64    `yaml:"default,omitempty"`
	Unit      string      `yaml:"unit,omitempty"`
	Enum      []EnumEntry `yaml:"enum,omitempty"`
}

// Message is a framed unit on the bus, identified by a numeric ID and a
// fixed payload length (DLC), carrying an ordered sequence of Signals.
type Message struct {
	ID          uint32   `yaml:"id"`
	Name        string   `yaml:"name"`
	DLC         int      `yaml:"dlc"`
	Description string   `yaml:"description,omitempty"`
	Signals     []Signal `yaml:"signals"`
}

// Spec is the root validated document describing one protocol.
type Spec struct {
	IRVersion string    `yaml:"ir_version"`
	Meta      Meta      `yaml:"meta"`
	BusType   BusType   `yaml:"bus_type"`
	Messages  []Message `yaml:"messages"`
}

// Identity returns the (name, source) tuple that identifies a Spec,
// per spec.md §3.
func (s Spec) Identity() (name string, source string) {
	return s.Meta.Name, s.Meta.Source
}
