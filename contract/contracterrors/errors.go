package contracterrors

import (
	"errors"
	"strings"
)

type ErrorSymbol string

// varint codec
const (
	ErrOverlong  = ErrorSymbol("varint_overlong")
	ErrOverflow  = ErrorSymbol("varint_overflow")
	ErrUnderflow = ErrorSymbol("varint_underflow")
)

// on-chain payload
const (
	ErrNoPayload       = ErrorSymbol("no_payload")
	ErrBadMagic        = ErrorSymbol("bad_magic")
	ErrMissingField    = ErrorSymbol("missing_field")
	ErrBadStakerLength = ErrorSymbol("bad_staker_length")
	ErrFieldRange      = ErrorSymbol("field_range")
)

// transaction construction
const (
	ErrBalance         = ErrorSymbol("insufficient_balance")
	ErrInvalidIdLength = ErrorSymbol("invalid_id_length")
	ErrBelowDust       = ErrorSymbol("below_dust")
	ErrInvalidPubKey   = ErrorSymbol("invalid_pubkey")
	ErrInvalidAddress  = ErrorSymbol("invalid_address")
	ErrInput           = ErrorSymbol("bad_input")
	ErrInvalidHex      = ErrorSymbol("invalid_hex")
	ErrTransaction     = ErrorSymbol("error_construction_transaction")
)

// ledger
const (
	ErrNotFound         = ErrorSymbol("not_found")
	ErrStatusTransition = ErrorSymbol("bad_status_transition")
	ErrRuneInactive     = ErrorSymbol("rune_inactive")
	ErrBelowMinStake    = ErrorSymbol("below_min_stake")
	ErrUserBlocked      = ErrorSymbol("user_blocked")
	ErrStateAccess      = ErrorSymbol("state_access_error")
	ErrJson             = ErrorSymbol("json_error")
)

const MsgBadInput = "error unmarshalling input"

type ContractError struct {
	Symbol ErrorSymbol
	Msg    string
}

func (es ErrorSymbol) String() string {
	return string(es)
}

// Error lets a bare symbol be used as a sentinel with errors.Is.
func (es ErrorSymbol) Error() string {
	return string(es)
}

func (e *ContractError) Error() string {
	return e.Symbol.String() + ": " + e.Msg
}

// Is matches another *ContractError or a bare ErrorSymbol with the same symbol.
func (e *ContractError) Is(target error) bool {
	switch t := target.(type) {
	case ErrorSymbol:
		return e.Symbol == t
	case *ContractError:
		return e.Symbol == t.Symbol
	}
	return false
}

func buildString(prepends []string, msg string) string {
	if len(prepends) == 0 {
		return msg
	}

	var b strings.Builder

	totalLen := len(msg) + (len(prepends) * 2)
	for _, s := range prepends {
		totalLen += len(s)
	}
	b.Grow(totalLen)

	for _, s := range prepends {
		b.WriteString(s)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	return b.String()
}

func NewContractError(symbol ErrorSymbol, msg string, prepends ...string) *ContractError {
	newMsg := buildString(prepends, msg)
	return &ContractError{
		Symbol: symbol,
		Msg:    newMsg,
	}
}

func WrapContractError(symbol ErrorSymbol, err error, prepends ...string) *ContractError {
	newMsg := buildString(prepends, err.Error())
	return &ContractError{
		Symbol: symbol,
		Msg:    newMsg,
	}
}

func Prepend(err error, prepends ...string) error {
	if len(prepends) == 0 {
		return err
	}

	var origMsg string
	cErr, isCErr := err.(*ContractError)
	if isCErr {
		origMsg = cErr.Msg
	} else {
		origMsg = err.Error()
	}

	newMsg := buildString(prepends, origMsg)
	if isCErr {
		return &ContractError{Symbol: cErr.Symbol, Msg: newMsg}
	} else {
		return errors.New(newMsg)
	}
}

// SymbolOf returns the symbol carried by err, or "" for foreign errors.
func SymbolOf(err error) ErrorSymbol {
	var cErr *ContractError
	if errors.As(err, &cErr) {
		return cErr.Symbol
	}
	var sym ErrorSymbol
	if errors.As(err, &sym) {
		return sym
	}
	return ""
}
