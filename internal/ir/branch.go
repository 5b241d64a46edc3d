package ir

// Terminator classification for basic-block construction.

// BranchInfo describes how an operation transfers control.
type BranchInfo struct {
	Targets []int // explicit target PCs (jump, switch cases, switch default last)
	Cond    bool  // true if the operation may also fall through
	IsTerm  bool  // true for RETURN and THROW: no successor in the method
	Switch  bool  // true for SWITCH
}

// Branch classifies op. Returns nil if op does not end a basic block.
func Branch(op Op) *BranchInfo {
	switch op.Code {
	case RETURN, THROW, RET:
		return &BranchInfo{IsTerm: true}
	case GOTO:
		return &BranchInfo{Targets: []int{op.Target}}
	case JSR:
		// The subroutine returns to the next operation; it is unsupported and
		// only has to keep the block boundaries sane.
		return &BranchInfo{Targets: []int{op.Target}, Cond: true}
	case JCND, JCMP:
		return &BranchInfo{Targets: []int{op.Target}, Cond: true}
	case SWITCH:
		ts := make([]int, 0, len(op.Targets)+1)
		ts = append(ts, op.Targets...)
		ts = append(ts, op.Default)
		return &BranchInfo{Targets: ts, Switch: true}
	}
	return nil
}

// IsTerminator reports whether op ends a basic block.
func IsTerminator(op Op) bool {
	return Branch(op) != nil
}
