package parser

// EdgeSource hands out a file's import edges one at a time.
type EdgeSource struct {
	edges []ImportEdge
	next  int
}

func NewEdgeSource(file *File) *EdgeSource {
	if file == nil {
		return &EdgeSource{}
	}
	return &EdgeSource{edges: file.Edges}
}

// Next returns the following edge, or false once the source is drained.
func (s *EdgeSource) Next() (ImportEdge, bool) {
	if s.next >= len(s.edges) {
		return ImportEdge{}, false
	}
	edge := s.edges[s.next]
	s.next++
	return edge, true
}

// Len reports how many edges remain.
func (s *EdgeSource) Len() int {
	return len(s.edges) - s.next
}
