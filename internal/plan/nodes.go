package plan

// Node is the base interface for all execution plan tree nodes. The
// tree mirrors the QueryPlan for walking, logging and explain output.
type Node interface {
	// Children returns child nodes for tree walking
	Children() []Node

	// Metadata returns attached metadata (never nil)
	Metadata() map[string]any

	// NodeType returns the type identifier (for debugging/logging)
	NodeType() string
}

// ScanNode represents one table's access (leaf node)
type ScanNode struct {
	Scan *TableScan

	metadata map[string]any
}

func (n *ScanNode) Children() []Node {
	return nil // Leaf node has no children
}

func (n *ScanNode) Metadata() map[string]any {
	if n.metadata == nil {
		n.metadata = make(map[string]any)
	}
	return n.metadata
}

func (n *ScanNode) NodeType() string {
	return "SCAN"
}

// JoinNode represents a nested-loop join (composite node, two children)
type JoinNode struct {
	Cond Condition

	left  Node
	right Node

	metadata map[string]any
}

func NewJoinNode(left, right Node, cond Condition) *JoinNode {
	return &JoinNode{left: left, right: right, Cond: cond}
}

func (n *JoinNode) Left() Node  { return n.left }
func (n *JoinNode) Right() Node { return n.right }

func (n *JoinNode) Children() []Node {
	return []Node{n.left, n.right}
}

func (n *JoinNode) Metadata() map[string]any {
	if n.metadata == nil {
		n.metadata = make(map[string]any)
	}
	return n.metadata
}

func (n *JoinNode) NodeType() string {
	return "JOIN"
}

// SelectNode is the root: projection, grouping and ordering over its
// child subtree.
type SelectNode struct {
	Plan *QueryPlan

	children []Node
	metadata map[string]any
}

func (n *SelectNode) Children() []Node {
	return n.children
}

func (n *SelectNode) AddChild(child Node) {
	n.children = append(n.children, child)
}

func (n *SelectNode) Metadata() map[string]any {
	if n.metadata == nil {
		n.metadata = make(map[string]any)
	}
	return n.metadata
}

func (n *SelectNode) NodeType() string {
	return "SELECT"
}

// BuildTree constructs the walkable node tree for a QueryPlan.
func BuildTree(p *QueryPlan) Node {
	root := &SelectNode{Plan: p}
	root.Metadata()["tables"] = len(p.Tables)
	root.Metadata()["aggregate"] = p.HasAggregates()
	root.Metadata()["single_partition"] = p.Routing.SinglePartition

	var current Node
	for i := range p.Tables {
		scan := &ScanNode{Scan: &p.Tables[i]}
		scan.Metadata()["table"] = p.Tables[i].Type
		scan.Metadata()["scan_type"] = p.Tables[i].Access.Kind.String()

		if current == nil {
			current = scan
			continue
		}
		cond := joinCondFor(p, p.Tables[i].Type)
		join := NewJoinNode(current, scan, cond)
		join.Metadata()["join_algorithm"] = "nested_loop"
		join.Metadata()["right_table"] = p.Tables[i].Type
		current = join
	}
	root.AddChild(current)
	return root
}

func joinCondFor(p *QueryPlan, rightTable string) Condition {
	for _, c := range p.JoinConds {
		for _, t := range c.Tables() {
			if t == rightTable {
				return c
			}
		}
	}
	return Condition{}
}
