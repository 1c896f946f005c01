package proof

import (
	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"
)

func (in VerificationRequest) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"block_height":`)
	out.Uint32(in.BlockHeight)
	out.RawString(`,"raw_header_hex":`)
	out.String(in.RawHeaderHex)
	out.RawString(`,"raw_tx_hex":`)
	out.String(in.RawTxHex)
	out.RawString(`,"merkle_proof_hex":`)
	out.String(in.MerkleProofHex)
	out.RawString(`,"tx_index":`)
	out.Uint32(in.TxIndex)
	out.RawByte('}')
}

func (out *VerificationRequest) UnmarshalTinyJSON(in *jlexer.Lexer) {
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
		case "block_height":
			out.BlockHeight = in.Uint32()
		case "raw_header_hex":
			out.RawHeaderHex = in.String()
		case "raw_tx_hex":
			out.RawTxHex = in.String()
		case "merkle_proof_hex":
			out.MerkleProofHex = in.String()
		case "tx_index":
			out.TxIndex = in.Uint32()
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

func (in VerificationRequest) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}

func (out *VerificationRequest) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}
