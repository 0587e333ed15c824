package ids

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator produces time-ordered 63-bit ids: 41 bits of milliseconds since
// epoch, 10 bits of node and 12 bits of sequence.
type Generator struct {
	mu     sync.Mutex
	nodeID int64
	seq    int64
	lastMS int64
	now    func() time.Time
}

func NewGenerator(nodeID int64) *Generator {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	return &Generator{nodeID: nodeID, now: time.Now}
}

var defaultGen = NewGenerator(1)

// SetNodeID sets the node of the default generator; call it once from main.
func SetNodeID(nodeID int64) {
	defaultGen.mu.Lock()
	defer defaultGen.mu.Unlock()
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	defaultGen.nodeID = nodeID
}

func Generate() int64 {
	return defaultGen.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// ConnID returns a compact connection handle.
func ConnID() string {
	return "c" + strconv.FormatInt(Generate(), 36)
}

// MessageID returns a random id for frames that cross process boundaries.
func MessageID() string {
	return uuid.NewString()
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now().UnixMilli()
		if now < g.lastMS {
			// clock moved backwards
			time.Sleep(time.Duration(g.lastMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastMS {
			g.seq = (g.seq + 1) & seqMask
			if g.seq == 0 {
				for now <= g.lastMS {
					now = g.now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastMS = now

		ts := (now - epoch.UnixMilli()) & (1<<41 - 1)
		return ts<<(nodeBits+seqBits) | g.nodeID<<seqBits | g.seq
	}
}

// Node extracts the node bits from an id produced by any Generator.
func Node(id int64) int64 {
	return id >> seqBits & maxNode
}
