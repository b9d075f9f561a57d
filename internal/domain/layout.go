package domain

// Layout identifies which of the two archive layouts a file uses.
type Layout int

const (
	// LayoutLegacy is a single n×9 numeric table without directory names.
	LayoutLegacy Layout = iota + 1
	// LayoutCurrent is an `overlaps` n×9 table plus a `seq` n×2 table of directory names.
	LayoutCurrent
)

// Table names of the current layout.
const (
	TableOverlaps = "overlaps"
	TableSeq      = "seq"
)

// NumericColumns is the width of the numeric table:
// id_a, id_b, overlap, yaw, pitch, roll, tx, ty, tz.
const NumericColumns = 9

// DirColumns is the width of the `seq` table: dir_a, dir_b.
const DirColumns = 2

func (l Layout) String() string {
	switch l {
	case LayoutLegacy:
		return "legacy"
	case LayoutCurrent:
		return "current"
	default:
		return "unknown"
	}
}
