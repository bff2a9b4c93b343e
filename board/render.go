package board

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
)

// Render draws the grid inside a wall border, followed by the score line.
func (b *Board) Render(w io.Writer, color bool) error {
	au := aurora.NewAurora(color)
	wall := au.White("W").String()
	border := strings.Repeat(wall+" ", b.size+2)

	var sb strings.Builder
	sb.WriteString(border)
	sb.WriteString("\n")
	for y := 0; y < b.size; y++ {
		sb.WriteString(wall)
		sb.WriteString(" ")
		for x := 0; x < b.size; x++ {
			switch b.grid[y*b.size+x] {
			case Head:
				sb.WriteString(au.Yellow("H").String())
			case Body:
				sb.WriteString(au.Blue("S").String())
			case GreenApple:
				sb.WriteString(au.Green("G").String())
			case RedApple:
				sb.WriteString(au.Red("R").String())
			default:
				sb.WriteString(".")
			}
			sb.WriteString(" ")
		}
		sb.WriteString(wall)
		sb.WriteString("\n")
	}
	sb.WriteString(border)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "score %d  length %d  max %d  moves %d\n",
		b.score, len(b.snake), b.maxLength, b.moves)

	_, err := io.WriteString(w, sb.String())
	return err
}

// Vision prints only what the snake can see: the row and column through its
// head, each ending at the wall.
func (b *Board) Vision() string {
	up := b.sight(0, -1)
	left := b.sight(-1, 0)
	down := b.sight(0, 1)
	right := b.sight(1, 0)
	reverse(up)
	reverse(left)

	indent := strings.Repeat(" ", len(left))
	var sb strings.Builder
	for _, c := range up {
		sb.WriteString(indent)
		sb.WriteByte(c)
		sb.WriteByte('\n')
	}
	sb.Write(left)
	sb.WriteByte('H')
	sb.Write(right)
	sb.WriteByte('\n')
	for _, c := range down {
		sb.WriteString(indent)
		sb.WriteByte(c)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (b *Board) sight(dx, dy int) []byte {
	var line []byte
	p := point{b.head.x + dx, b.head.y + dy}
	for b.inside(p) {
		line = append(line, symbol(b.grid[p.y*b.size+p.x]))
		p.x += dx
		p.y += dy
	}
	return append(line, 'W')
}

func symbol(c Cell) byte {
	switch c {
	case Body:
		return 'S'
	case GreenApple:
		return 'G'
	case RedApple:
		return 'R'
	}
	return '0'
}

func reverse(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
