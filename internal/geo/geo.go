// 包 geo：模糊去重使用的坐标工具
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Point：十进制度坐标
type Point struct {
	Lat float64
	Lon float64
}

var errCoordinates = errors.New("invalid coordinates")

// ParseCoordinates：解析 "lat,lon" 文本，超出范围时报错
func ParseCoordinates(s string) (Point, error) {
	lat, lon, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Point{}, errCoordinates
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, errCoordinates
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Point{}, errCoordinates
	}
	if math.IsNaN(la) || math.IsNaN(lo) || la < -90 || la > 90 || lo < -180 || lo > 180 {
		return Point{}, errCoordinates
	}
	return Point{Lat: la, Lon: lo}, nil
}

// Distance：以度为单位的平面欧氏距离
// 约束：仅适用于去重所用的极小阈值，不做大圆计算
func Distance(a, b Point) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon)
}

// Cell：边长等于搜索阈值的方形网格
type Cell struct {
	X int64
	Y int64
}

// CellOf：返回 p 所在网格
func CellOf(p Point, side float64) Cell {
	return Cell{X: int64(math.Floor(p.Lon / side)), Y: int64(math.Floor(p.Lat / side))}
}

// Neighbours：返回 c 及其周围八格
// 背景：与 c 内任一点距离不超过一个边长的点必落在这九格之一
func (c Cell) Neighbours() [9]Cell {
	var out [9]Cell
	i := 0
	for dy := int64(-1); dy <= 1; dy++ {
		for dx := int64(-1); dx <= 1; dx++ {
			out[i] = Cell{X: c.X + dx, Y: c.Y + dy}
			i++
		}
	}
	return out
}

// Grid：按网格分桶存放下标，用于邻域查询
type Grid struct {
	side  float64
	cells map[Cell][]int
}

func NewGrid(side float64) *Grid {
	return &Grid{side: side, cells: make(map[Cell][]int)}
}

func (g *Grid) Insert(p Point, id int) {
	c := CellOf(p, g.side)
	g.cells[c] = append(g.cells[c], id)
}

// Near：返回 p 所在格及邻格中的下标，格内按插入顺序
func (g *Grid) Near(p Point) []int {
	var out []int
	for _, c := range CellOf(p, g.side).Neighbours() {
		out = append(out, g.cells[c]...)
	}
	return out
}
