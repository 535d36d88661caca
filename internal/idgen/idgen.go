package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier as string.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
	// NodeID selects the snowflake node; change it before the first Seq call.
	NodeID int64 = 1
)

// SeqFunc returns the next sequential process number.
var SeqFunc = func() int64 {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(NodeID)
	})
	if nodeErr != nil {
		panic(nodeErr)
	}
	return node.Generate().Int64()
}

// Seq returns the next sequential process number.
func Seq() int64 { return SeqFunc() }
