package dashboard

// recentCache keeps the most recently generated work-mode texts so repeated
// renders of the same project/mode/day skip the template pass. Hash map for
// O(1) lookup plus a doubly linked list for O(1) eviction ordering.
type outputKey struct {
	ProjectID string
	Mode      string
	Day       string
}

type cacheNode struct {
	key  outputKey
	text string
	prev *cacheNode
	next *cacheNode
}

type recentCache struct {
	capacity int
	items    map[outputKey]*cacheNode
	head     *cacheNode // most recently used (sentinel)
	tail     *cacheNode // least recently used (sentinel)
}

// newRecentCache creates a cache with the given capacity. The cache is only
// touched under the service lock, so it carries no lock of its own.
func newRecentCache(capacity int) *recentCache {
	if capacity < 1 {
		capacity = 1
	}
	head := &cacheNode{}
	tail := &cacheNode{}
	head.next = tail
	tail.prev = head
	return &recentCache{
		capacity: capacity,
		items:    make(map[outputKey]*cacheNode, capacity),
		head:     head,
		tail:     tail,
	}
}

func (c *recentCache) get(key outputKey) (string, bool) {
	n, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.moveToFront(n)
	return n.text, true
}

func (c *recentCache) put(key outputKey, text string) {
	if n, ok := c.items[key]; ok {
		n.text = text
		c.moveToFront(n)
		return
	}

	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.unlink(victim)
		delete(c.items, victim.key)
	}

	n := &cacheNode{key: key, text: text}
	c.items[key] = n
	c.pushFront(n)
}

func (c *recentCache) purge() {
	c.items = make(map[outputKey]*cacheNode, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *recentCache) moveToFront(n *cacheNode) {
	c.unlink(n)
	c.pushFront(n)
}

func (c *recentCache) unlink(n *cacheNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *recentCache) pushFront(n *cacheNode) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}
