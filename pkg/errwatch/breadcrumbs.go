// breadcrumbs.go provides a bounded ring buffer of breadcrumbs.

package errwatch

// DefaultMaxBreadcrumbs is the breadcrumb capacity of a new Scope.
const DefaultMaxBreadcrumbs = 40

// breadcrumbBuffer is a bounded ring buffer. It is not safe for concurrent use;
// Scope guards it.
type breadcrumbBuffer struct {
	records  []Breadcrumb
	maxSize  int
	writeIdx int
}

// Add appends a breadcrumb, evicting the oldest if the buffer is full.
func (b *breadcrumbBuffer) Add(crumb Breadcrumb) {
	if b.maxSize <= 0 {
		return
	}
	if len(b.records) < b.maxSize {
		b.records = append(b.records, crumb)
		return
	}
	b.records[b.writeIdx] = crumb
	b.writeIdx = (b.writeIdx + 1) % b.maxSize
}

// GetAll returns a copy of the breadcrumbs, oldest first.
func (b *breadcrumbBuffer) GetAll() []Breadcrumb {
	result := make([]Breadcrumb, len(b.records))
	if len(b.records) < b.maxSize {
		copy(result, b.records)
		return result
	}
	// writeIdx points at the oldest record once the buffer has wrapped.
	copy(result, b.records[b.writeIdx:])
	copy(result[len(b.records)-b.writeIdx:], b.records[:b.writeIdx])
	return result
}

// Reset drops all breadcrumbs.
func (b *breadcrumbBuffer) Reset() {
	b.records = nil
	b.writeIdx = 0
}
