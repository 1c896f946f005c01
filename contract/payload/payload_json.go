package payload

import (
	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"
)

// MarshalTinyJSON writes the record with hex-encoded id and staker.
func (in Payload) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"protocol":`)
	out.Uint64(in.Protocol)
	out.RawString(`,"version":`)
	out.Uint64(in.Version)
	out.RawString(`,"vout":`)
	out.Uint32(in.Vout)
	out.RawString(`,"lock_time":`)
	out.Uint32(in.LockTime)
	out.RawString(`,"id":`)
	out.String(in.IDHex())
	out.RawString(`,"staker":`)
	out.String(in.StakerHex())
	out.RawByte('}')
}

func (out *Payload) UnmarshalTinyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "protocol":
			out.Protocol = in.Uint64()
		case "version":
			out.Version = in.Uint64()
		case "vout":
			out.Vout = in.Uint32()
		case "lock_time":
			out.LockTime = in.Uint32()
		case "id":
			id, err := ParseID(in.String())
			if err != nil {
				in.AddError(err)
			}
			out.ID = id
		case "staker":
			staker, err := ParseStaker(in.String())
			if err != nil {
				in.AddError(err)
			}
			out.Staker = staker
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func (in Payload) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}

func (out *Payload) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}
