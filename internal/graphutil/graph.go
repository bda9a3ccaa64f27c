// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graphutil adapts the control-flow graphs of methods to existing graph libraries: gonum for dominators and
// yourbasic for traversals and strongly connected components.
package graphutil

import (
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
)

// MethodGraph is an abstraction over the control-flow graph of a method. It implements the methods to satisfy
// yourbasic's graph.Iterator and Gonum's graph.Directed.
// Node ids are instruction indexes; the exit sentinel is the node Method.Len().
type MethodGraph struct {
	// Method is the method the graph was constructed from
	Method *bytecode.Method

	// order is the number of nodes, including the exit sentinel
	order int
}

// NewMethodGraph returns the graph of the instructions of m, including its exit sentinel
func NewMethodGraph(m *bytecode.Method) MethodGraph {
	return MethodGraph{Method: m, order: m.Len() + 1}
}

// Order implements the order of the graph.Iterator interface for the MethodGraph
func (g MethodGraph) Order() int {
	return g.order
}

// Visit implements the graph.Iterator interface for the MethodGraph
func (g MethodGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if v < 0 || v >= g.order {
		return false
	}
	for _, w := range g.Method.SuccessorIndexes(v) {
		if do(w, 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (g MethodGraph) Node(id int64) graph.Node {
	if id < 0 || id >= int64(g.order) {
		return nil
	}
	return INode{g.Method.Instr(int(id))}
}

// Nodes returns the set of nodes in the graph
func (g MethodGraph) Nodes() graph.Nodes {
	nodes := make([]graph.Node, g.order)
	for i := 0; i < g.order; i++ {
		nodes[i] = INode{g.Method.Instr(i)}
	}
	return iterator.NewOrderedNodes(nodes)
}

// From returns the set of nodes reachable from the id by one edge
func (g MethodGraph) From(id int64) graph.Nodes {
	return g.nodesOf(g.Method.SuccessorIndexes(int(id)))
}

// To returns the set of nodes that reach id by one edge
func (g MethodGraph) To(id int64) graph.Nodes {
	if id < 0 || id >= int64(g.order) {
		return graph.Empty
	}
	return g.nodesOf(g.Method.PredecessorIndexes(int(id)))
}

func (g MethodGraph) nodesOf(ids []int) graph.Nodes {
	if len(ids) == 0 {
		return graph.Empty
	}
	nodes := make([]graph.Node, len(ids))
	for k, i := range ids {
		nodes[k] = INode{g.Method.Instr(i)}
	}
	return iterator.NewOrderedNodes(nodes)
}

// HasEdgeFromTo returns a boolean indicating whether there is an edge from uid to vid
func (g MethodGraph) HasEdgeFromTo(uid, vid int64) bool {
	for _, s := range g.Method.SuccessorIndexes(int(uid)) {
		if int64(s) == vid {
			return true
		}
	}
	return false
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (g MethodGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.HasEdgeFromTo(xid, yid) || g.HasEdgeFromTo(yid, xid)
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (g MethodGraph) Edge(uid, vid int64) graph.Edge {
	if g.HasEdgeFromTo(uid, vid) {
		return IEdge{from: INode{g.Method.Instr(int(uid))}, to: INode{g.Method.Instr(int(vid))}}
	}
	return nil
}

// *************** Nodes implementation **********************

// INode is a wrapper around an instruction that implements the graph.Node interface
type INode struct {
	Instr *bytecode.Instruction
}

// ID returns the id of the node
func (n INode) ID() int64 {
	return int64(n.Instr.Index)
}

func (n INode) String() string {
	if n.Instr == nil {
		return ""
	}
	return n.Instr.String()
}

// *************** Edge implementation **********************

// IEdge implements the graph.Edge interface
type IEdge struct {
	from INode
	to   INode
}

// From returns the origin of the edge
func (e IEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e IEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e IEdge) ReversedEdge() graph.Edge {
	return IEdge{from: e.to, to: e.from}
}
