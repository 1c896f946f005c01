package ledger

import (
	"encoding/hex"

	"talos-staking/contract/payload"

	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"
	"github.com/holiman/uint256"
)

func readDecimal(in *jlexer.Lexer, v *uint256.Int) {
	if err := v.SetFromDecimal(in.String()); err != nil {
		in.AddError(err)
	}
}

func (in OrderRecord) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"id":`)
	out.String(hex.EncodeToString(in.ID[:]))
	out.RawString(`,"kind":`)
	out.String(string(in.Kind))
	out.RawString(`,"rune_id":`)
	out.String(in.RuneID)
	out.RawString(`,"stake_amount":`)
	out.String(in.StakeAmount.Dec())
	out.RawString(`,"payload":`)
	in.Payload.MarshalTinyJSON(out)
	out.RawString(`,"address":`)
	out.String(in.Address)
	out.RawString(`,"status":`)
	out.String(string(in.Status))
	if in.Reason != "" {
		out.RawString(`,"reason":`)
		out.String(in.Reason)
	}
	out.RawString(`,"commit_txid":`)
	out.String(in.CommitTxID)
	out.RawString(`,"created_at":`)
	out.Int64(in.CreatedAt)
	out.RawString(`,"updated_at":`)
	out.Int64(in.UpdatedAt)
	out.RawByte('}')
}

func (out *OrderRecord) UnmarshalTinyJSON(in *jlexer.Lexer) {
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
		case "id":
			id, err := payload.ParseID(in.String())
			if err != nil {
				in.AddError(err)
			}
			out.ID = id
		case "kind":
			out.Kind = Kind(in.String())
		case "rune_id":
			out.RuneID = in.String()
		case "stake_amount":
			readDecimal(in, &out.StakeAmount)
		case "payload":
			(&out.Payload).UnmarshalTinyJSON(in)
		case "address":
			out.Address = in.String()
		case "status":
			out.Status = Status(in.String())
		case "reason":
			out.Reason = in.String()
		case "commit_txid":
			out.CommitTxID = in.String()
		case "created_at":
			out.CreatedAt = in.Int64()
		case "updated_at":
			out.UpdatedAt = in.Int64()
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

func (in OrderRecord) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}

func (out *OrderRecord) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}

func (in RuneListing) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"rune_id":`)
	out.String(in.RuneID)
	out.RawString(`,"status":`)
	out.String(string(in.Status))
	out.RawString(`,"min_stake":`)
	out.String(in.MinStake.Dec())
	out.RawByte('}')
}

func (out *RuneListing) UnmarshalTinyJSON(in *jlexer.Lexer) {
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
		case "rune_id":
			out.RuneID = in.String()
		case "status":
			out.Status = RuneStatus(in.String())
		case "min_stake":
			readDecimal(in, &out.MinStake)
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

func (in RuneListing) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}

func (out *RuneListing) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}

func (in User) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	out.RawString(`"address":`)
	out.String(in.Address)
	out.RawString(`,"public_key":`)
	out.String(in.PublicKey)
	out.RawString(`,"xonly":`)
	out.String(hex.EncodeToString(in.XOnly[:]))
	out.RawString(`,"blocked":`)
	out.Bool(in.Blocked)
	out.RawByte('}')
}

func (out *User) UnmarshalTinyJSON(in *jlexer.Lexer) {
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
		case "address":
			out.Address = in.String()
		case "public_key":
			out.PublicKey = in.String()
		case "xonly":
			xOnly, err := payload.ParseStaker(in.String())
			if err != nil {
				in.AddError(err)
			}
			out.XOnly = xOnly
		case "blocked":
			out.Blocked = in.Bool()
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

func (in User) MarshalJSON() ([]byte, error) {
	return tinyjson.Marshal(in)
}

func (out *User) UnmarshalJSON(data []byte) error {
	return tinyjson.Unmarshal(data, out)
}
