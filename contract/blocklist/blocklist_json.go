package blocklist

import (
	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"
)

// objectFields walks the keys of a JSON object, calling field for each
// non-null value.
func objectFields(in *jlexer.Lexer, field func(key string)) {
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
		field(key)
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func (in BlockData) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"Seeded":`)
	out.Bool(in.Seeded)
	out.RawString(`,"LastHeight":`)
	out.Uint32(in.LastHeight)
	out.RawByte('}')
}

func (out *BlockData) UnmarshalTinyJSON(in *jlexer.Lexer) {
	objectFields(in, func(key string) {
		switch key {
		case "Seeded":
			out.Seeded = in.Bool()
		case "LastHeight":
			out.LastHeight = in.Uint32()
		default:
			in.SkipRecursive()
		}
	})
}

func (out *AddBlocksInput) UnmarshalTinyJSON(in *jlexer.Lexer) {
	objectFields(in, func(key string) {
		switch key {
		case "Blocks":
			out.Blocks = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

func (out *AddBlocksInput) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}

func (in AddBlockOutput) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"Success":`)
	out.Bool(in.Success)
	out.RawString(`,"Error":`)
	out.String(in.Error)
	out.RawString(`,"LastBlockHeight":`)
	out.Uint32(in.LastBlockHeight)
	out.RawByte('}')
}

func (in AddBlockOutput) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}

func (out *BlockSeedInput) UnmarshalTinyJSON(in *jlexer.Lexer) {
	objectFields(in, func(key string) {
		switch key {
		case "BlockHeader":
			out.BlockHeader = in.String()
		case "BlockHeight":
			out.BlockHeight = in.Uint32()
		default:
			in.SkipRecursive()
		}
	})
}

func (out *BlockSeedInput) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}
