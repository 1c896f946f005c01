package protocol

// Tag identifies the field carried by the value that follows it in a
// tagged integer stream.
type Tag uint64

const (
	TagNumber   Tag = 0
	TagOp       Tag = 2
	TagBlocks   Tag = 4
	TagBody     Tag = 5
	TagSigners  Tag = 6
	TagSkips    Tag = 7
	TagWho      Tag = 8
	TagAmount   Tag = 9
	TagValue    Tag = 10
	TagOutput   Tag = 11
	TagCoin     Tag = 12
	TagPlatform Tag = 14
	TagMetadata Tag = 21
	TagId       Tag = 54
	TagTime     Tag = 56
	TagInit     Tag = 71
	TagMint     Tag = 73
	TagTele     Tag = 75
	TagCall     Tag = 77
	TagBurn     Tag = 79
	TagSend     Tag = 81
	TagDele     Tag = 83
	TagStake    Tag = 85
	TagVersion  Tag = 99
	TagProtocol Tag = 100
	TagNop      Tag = 255
)

var tagNames = map[Tag]string{
	TagNumber:   "number",
	TagOp:       "op",
	TagBlocks:   "blocks",
	TagBody:     "body",
	TagSigners:  "signers",
	TagSkips:    "skips",
	TagWho:      "who",
	TagAmount:   "amount",
	TagValue:    "value",
	TagOutput:   "output",
	TagCoin:     "coin",
	TagPlatform: "platform",
	TagMetadata: "metadata",
	TagId:       "id",
	TagTime:     "time",
	TagInit:     "init",
	TagMint:     "mint",
	TagTele:     "tele",
	TagCall:     "call",
	TagBurn:     "burn",
	TagSend:     "send",
	TagDele:     "dele",
	TagStake:    "stake",
	TagVersion:  "version",
	TagProtocol: "protocol",
	TagNop:      "nop",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

// ProtocolID is the value carried under TagProtocol.
type ProtocolID uint64

const (
	ProtocolAtom  ProtocolID = 101
	ProtocolBRC20 ProtocolID = 103
	ProtocolRunes ProtocolID = 105
)
