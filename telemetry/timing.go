package telemetry

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// TimingCollector records a tree of timed operations and reports it as a
// nested view:
//
//	report input_valid.csv: 1.2s
//	├─ normalize: 12ms
//	├─ build actions: 950ms
//	└─ match lots: 85ms
type TimingCollector struct {
	mu      sync.Mutex
	root    *timerNode
	current *timerNode
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	parent   *timerNode
	children []*timerNode
}

// NewTimingCollector creates an empty collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{}
}

// Start begins timing an operation. The first Start becomes the root;
// subsequent starts nest under the most recent unfinished timer.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: time.Now()}
	if c.root == nil {
		c.root = node
	} else {
		node.parent = c.current
		c.current.children = append(c.current.children, node)
	}
	c.current = node
	return &timer{collector: c, node: node}
}

// Report writes the timing tree.
func (c *TimingCollector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.root == nil {
		return
	}
	root := c.root
	if root.end.IsZero() {
		root.end = time.Now()
	}
	fmt.Fprintf(w, "%s: %s\n", root.name, formatDuration(root.end.Sub(root.start)))
	for i, child := range root.children {
		writeNode(w, child, "", i == len(root.children)-1)
	}
}

type timer struct {
	collector *TimingCollector
	node      *timerNode
}

func (t *timer) End() {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	if t.node.end.IsZero() {
		t.node.end = time.Now()
	}
	if t.collector.current == t.node && t.node.parent != nil {
		t.collector.current = t.node.parent
	}
}

func (t *timer) Child(name string) Timer {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	node := &timerNode{name: name, start: time.Now(), parent: t.node}
	t.node.children = append(t.node.children, node)
	return &timer{collector: t.collector, node: node}
}

func writeNode(w io.Writer, node *timerNode, prefix string, last bool) {
	branch, extension := "├─ ", "│  "
	if last {
		branch, extension = "└─ ", "   "
	}

	end := node.end
	if end.IsZero() {
		end = time.Now()
	}
	fmt.Fprintf(w, "%s%s%s: %s\n", prefix, branch, node.name, formatDuration(end.Sub(node.start)))

	for i, child := range node.children {
		writeNode(w, child, prefix+extension, i == len(node.children)-1)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
