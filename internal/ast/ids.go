package ast

type (
	ExprID    uint32
	StmtID    uint32
	ArgsID    uint32
	TypeSynID uint32
	PayloadID uint32
)

const (
	NoExprID    ExprID    = 0
	NoStmtID    StmtID    = 0
	NoArgsID    ArgsID    = 0
	NoTypeSynID TypeSynID = 0
	NoPayloadID PayloadID = 0
)

func (id ExprID) IsValid() bool    { return id != NoExprID }
func (id StmtID) IsValid() bool    { return id != NoStmtID }
func (id ArgsID) IsValid() bool    { return id != NoArgsID }
func (id TypeSynID) IsValid() bool { return id != NoTypeSynID }
func (id PayloadID) IsValid() bool { return id != NoPayloadID }
