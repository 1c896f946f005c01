package feerate

import (
	"strconv"

	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"
)

// The lexer and writer carry no float support, so numbers go through their
// raw token.
func readFloat(in *jlexer.Lexer) float64 {
	raw := in.Raw()
	if !in.Ok() {
		return 0
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		in.AddError(err)
		return 0
	}
	return v
}

func writeFloat(out *jwriter.Writer, v float64) {
	out.Raw(strconv.AppendFloat(nil, v, 'g', -1, 64), nil)
}

// FeeBlocks is the list returned by the mempool-blocks endpoint.
type FeeBlocks []FeeBlock

func (in FeeBlock) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"blockSize":`)
	out.Int64(in.BlockSize)
	out.RawString(`,"blockVSize":`)
	writeFloat(out, in.BlockVSize)
	out.RawString(`,"nTx":`)
	out.Int64(in.NTx)
	out.RawString(`,"totalFees":`)
	out.Int64(in.TotalFees)
	out.RawString(`,"medianFee":`)
	writeFloat(out, in.MedianFee)
	out.RawString(`,"feeRange":`)
	if in.FeeRange == nil {
		out.RawString("null")
	} else {
		out.RawByte('[')
		for i, v := range in.FeeRange {
			if i > 0 {
				out.RawByte(',')
			}
			writeFloat(out, v)
		}
		out.RawByte(']')
	}
	out.RawByte('}')
}

func (out *FeeBlock) UnmarshalTinyJSON(in *jlexer.Lexer) {
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
		case "blockSize":
			out.BlockSize = in.Int64()
		case "blockVSize":
			out.BlockVSize = readFloat(in)
		case "nTx":
			out.NTx = in.Int64()
		case "totalFees":
			out.TotalFees = in.Int64()
		case "medianFee":
			out.MedianFee = readFloat(in)
		case "feeRange":
			out.FeeRange = out.FeeRange[:0]
			in.Delim('[')
			for !in.IsDelim(']') {
				out.FeeRange = append(out.FeeRange, readFloat(in))
				in.WantComma()
			}
			in.Delim(']')
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

func (in FeeBlock) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}

func (out *FeeBlock) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}

func (out *FeeBlocks) UnmarshalTinyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		in.Skip()
		*out = nil
	} else {
		in.Delim('[')
		*out = (*out)[:0]
		for !in.IsDelim(']') {
			var block FeeBlock
			block.UnmarshalTinyJSON(in)
			*out = append(*out, block)
			in.WantComma()
		}
		in.Delim(']')
	}
	if isTopLevel {
		in.Consumed()
	}
}

func (out *FeeBlocks) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}

// MarshalTinyJSON uses the preset names of the mempool fee API.
func (in Rates) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"fastestFee":`)
	out.Int64(in.Fastest)
	out.RawString(`,"halfHourFee":`)
	out.Int64(in.HalfHour)
	out.RawString(`,"hourFee":`)
	out.Int64(in.Hour)
	out.RawByte('}')
}

func (in Rates) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}
