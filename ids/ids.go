// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ids

import (
	"errors"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const defaultNode = 1

var ErrInvalidID = errors.New("invalid id")

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets the Snowflake node for this process. Only the first call has
// any effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a new time-ordered int64 ID. Falls back to node 1 if Init
// was never called.
func New() int64 {
	once.Do(func() {
		node, _ = snowflake.NewNode(defaultNode)
	})
	return node.Generate().Int64()
}

// Parse converts a path or query value into an ID
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
