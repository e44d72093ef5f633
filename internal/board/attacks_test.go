package board

import "testing"

func TestDirection(t *testing.T) {
	tests := []struct {
		from, to Square
		want     int
	}{
		{A1, H8, 9},
		{H8, A1, -9},
		{H1, A8, 7},
		{A8, H1, -7},
		{E4, E1, -8},
		{E4, E8, 8},
		{E4, A4, -1},
		{E4, H4, 1},
		{A1, B3, 0},
		{E4, F6, 0},
		{E4, E4, 0},
		{H1, A2, 0},
	}

	for _, tt := range tests {
		if got := Direction(tt.from, tt.to); got != tt.want {
			t.Errorf("Direction(%v, %v) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRayTables(t *testing.T) {
	for sq := A1; sq <= H8; sq++ {
		for dir := 0; dir < dirCount; dir++ {
			n := NumSquaresToEdge(sq, dir)
			offset := DirectionOffset(dir)
			if n == 0 {
				continue
			}

			edge := Square(int(sq) + n*offset)
			if edge.File() != 0 && edge.File() != 7 && edge.Rank() != 0 && edge.Rank() != 7 {
				t.Errorf("%v + %d x %d = %v, not on the edge", sq, n, offset, edge)
			}
			if got := Direction(sq, edge); got != offset {
				t.Errorf("Direction(%v, %v) = %d, want %d", sq, edge, got, offset)
			}
			if ray := rayMasks[dir][sq]; ray.PopCount() != n || !ray.IsSet(edge) {
				t.Errorf("ray %d from %v has %d squares, want %d ending on %v", dir, sq, ray.PopCount(), n, edge)
			}
		}
	}

	if NumSquaresToEdge(A1, DirSouth) != 0 || NumSquaresToEdge(A1, DirNorthEast) != 7 || NumSquaresToEdge(D4, DirWest) != 3 {
		t.Errorf("edge distances from a1/d4 wrong")
	}
}
