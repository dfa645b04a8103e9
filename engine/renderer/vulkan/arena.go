package vulkan

// Command is a type-erased, move-only unit of replay. It captures its own
// state the way any Go closure does; there is no separate destructor step
// because the garbage collector reclaims captured state once the arena
// chunk holding the closure is truncated.
type Command func(cb *CommandBufferManager)

type commandNode struct {
	fn   Command
	next int32
}

// ArenaChunk is a fixed-capacity bump allocator holding an intrusively
// linked sequence of Command closures. Capacity is expressed as a slot
// count derived from the configured byte budget; recording never
// reallocates once capacity is reached, so a full chunk fails closed.
type ArenaChunk struct {
	nodes       []commandNode
	writeOffset uint32
	capacity    uint32
	first, last int32
}

func newArenaChunk(chunkBytes uint32) *ArenaChunk {
	slots := chunkCapacity(chunkBytes)
	return &ArenaChunk{
		nodes:    make([]commandNode, 0, slots),
		capacity: uint32(slots) * commandSlotBytes,
		first:    -1,
		last:     -1,
	}
}

// Record appends cmd to the chunk if capacity allows, returning false with
// no state change otherwise.
func (c *ArenaChunk) Record(cmd Command) bool {
	if cmd == nil {
		panic("vulkan: nil command recorded into arena chunk")
	}
	if c.writeOffset+commandSlotBytes > c.capacity {
		return false
	}
	idx := int32(len(c.nodes))
	c.nodes = append(c.nodes, commandNode{fn: cmd, next: -1})
	if c.last != -1 {
		c.nodes[c.last].next = idx
	} else {
		c.first = idx
	}
	c.last = idx
	c.writeOffset += commandSlotBytes
	return true
}

// IsEmpty reports whether the chunk currently holds no recorded commands.
func (c *ArenaChunk) IsEmpty() bool {
	return c.writeOffset == 0 && c.first == -1
}

// ExecuteAll replays every recorded closure in insertion order against cb,
// then resets the chunk to an empty state ready for reuse.
func (c *ArenaChunk) ExecuteAll(cb *CommandBufferManager) {
	for idx := c.first; idx != -1; {
		node := c.nodes[idx]
		node.fn(cb)
		idx = node.next
	}
	clear(c.nodes)
	c.nodes = c.nodes[:0]
	c.writeOffset = 0
	c.first, c.last = -1, -1
}
