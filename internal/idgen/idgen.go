// Package idgen generates opaque entity identifiers. K-sortable ids (lead,
// conversation, follow-up, fallback message ids) use Snowflake, the same
// library basegraphhq-basegraph uses for its own entities. Ids where
// sortability is irrelevant (turn ids, idempotency correlation ids) use
// google/uuid.
package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Configure sets the Snowflake node id for this process (0-1023). Must be
// called once at startup before any NewEntityID call; defaults to node 0 if
// never called, which is adequate for a single-instance deployment.
func Configure(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("idgen: configure node %d: %w", nodeID, err)
	}
	node = n
	return nil
}

func currentNode() *snowflake.Node {
	mu.Lock()
	defer mu.Unlock()
	if node == nil {
		n, err := snowflake.NewNode(0)
		if err != nil {
			panic(fmt.Sprintf("idgen: default node: %v", err))
		}
		node = n
	}
	return node
}

// NewEntityID returns a new k-sortable id for leads, conversations,
// follow-ups, and fallback message ids, prefixed with kind for readability
// in logs and store rows (e.g. "lead_1892...").
func NewEntityID(kind string) string {
	return fmt.Sprintf("%s_%s", kind, currentNode().Generate().String())
}

// NewTurnID returns a random id for one agent-orchestrator turn (§4.D).
func NewTurnID() string {
	return "turn_" + uuid.NewString()
}

// NewCorrelationID returns a random id for request/response correlation that
// is never persisted or sorted (e.g. webhook delivery tracing).
func NewCorrelationID() string {
	return uuid.NewString()
}
