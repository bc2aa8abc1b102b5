// Package amf0 implements encoding and decoding of Action Message Format
// version 0, the value serialization RTMP uses for command messages
// (connect, createStream, publish, play, onStatus) and for script-data
// (onMetaData) tags carried inside FLV.
package amf0

// AMF0 type markers, per the wire format.
const (
	TypeNumber      = 0x00
	TypeBoolean     = 0x01
	TypeString      = 0x02
	TypeObject      = 0x03
	TypeMovieClip   = 0x04
	TypeNull        = 0x05
	TypeUndefined   = 0x06
	TypeReference   = 0x07
	TypeECMAArray   = 0x08
	TypeObjectEnd   = 0x09
	TypeStrictArray = 0x0A
	TypeDate        = 0x0B
	TypeLongString  = 0x0C
	TypeUnsupported = 0x0D
	TypeRecordSet   = 0x0E
	TypeXMLDocument = 0x0F
	TypeTypedObject = 0x10
)

// Value is a decoded AMF0 value. Concrete types produced by Decode are:
// float64 (Number, and Date as its millisecond value), bool (Boolean),
// string (String, LongString), Null, Undefined, Object (anonymous object
// and ECMAArray), Array (StrictArray).
type Value interface{}

// Null is the decoded form of the AMF0 null marker, distinct from Go nil so
// that "explicitly null" and "absent" can be told apart where it matters.
type Null struct{}

// Undefined is the decoded form of the AMF0 undefined marker.
type Undefined struct{}

// Object represents an AMF0 anonymous object or ECMA array.
type Object map[string]Value

// Array represents an AMF0 strict array.
type Array []Value
