package btree

import (
	"fmt"
	"strings"
)

// Visualizer renders a tree one level per line, each node as its bracketed keys:
//
//	0: [10]
//	1: [5 6] [12 17 20]
type Visualizer struct {
	Tree *Tree
}

func (v *Visualizer) Visualize() string {
	if v.Tree == nil || v.Tree.root == nil {
		return "(empty)"
	}

	var sb strings.Builder
	level := []*node{v.Tree.root}
	for depth := 0; len(level) > 0; depth++ {
		var next []*node
		fmt.Fprintf(&sb, "%d:", depth)
		for _, n := range level {
			sb.WriteString(" [")
			for i := 0; i < n.numKeys; i++ {
				if i > 0 {
					sb.WriteByte(' ')
				}
				fmt.Fprintf(&sb, "%d", n.keys[i])
			}
			sb.WriteByte(']')
			if !n.leaf {
				next = append(next, n.children[:n.numKeys+1]...)
			}
		}
		sb.WriteByte('\n')
		level = next
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
