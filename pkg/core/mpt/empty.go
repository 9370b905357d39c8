package mpt

// EmptyNode represents empty node.
type EmptyNode struct{}

// Type implements the Node interface.
func (e EmptyNode) Type() NodeType {
	return EmptyT
}

func (e EmptyNode) base() *BaseNode {
	return new(BaseNode)
}
