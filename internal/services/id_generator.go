package services

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator issues the human-facing reference numbers for claims,
// payouts and simulated transactions.
type IDGenerator struct {
	node *snowflake.Node
}

func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}
	return &IDGenerator{node: node}, nil
}

func (g *IDGenerator) ClaimNumber() string {
	return "CLM-" + g.node.Generate().String()
}

func (g *IDGenerator) PayoutNumber() string {
	return "PAY-" + g.node.Generate().String()
}

func (g *IDGenerator) TransactionID() string {
	return "TXN-" + g.node.Generate().String()
}
