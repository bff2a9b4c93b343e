// Package board is the snake game the agent is trained on: a square grid
// with walls around it, two green apples and one red apple.
package board

import (
	"errors"
	"fmt"

	"github.com/CodeStranger-Fred/slither/mdp"
)

const (
	DefaultSize = 10
	MinSize     = 10

	GreenApples = 2
	RedApples   = 1

	startLength = 3
)

// Rewards handed to the agent by Step.
const (
	RewardGreenApple mdp.Reward = 10
	RewardRedApple   mdp.Reward = -10
	RewardDeath      mdp.Reward = -50
	RewardStep       mdp.Reward = -0.1
)

var ErrSize = fmt.Errorf("board size must be at least %d", MinSize)

type Cell uint8

const (
	Empty Cell = iota
	Wall
	Head
	Body
	GreenApple
	RedApple
)

type Direction int

const (
	Up Direction = iota
	Left
	Down
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Left:
		return "LEFT"
	case Down:
		return "DOWN"
	case Right:
		return "RIGHT"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func (d Direction) delta() (dx, dy int, ok bool) {
	switch d {
	case Up:
		return 0, -1, true
	case Left:
		return -1, 0, true
	case Down:
		return 0, 1, true
	case Right:
		return 1, 0, true
	}
	return 0, 0, false
}

// Outcome is what a single move did.
type Outcome int

const (
	Moved Outcome = iota
	HitWall
	HitSelf
	AteGreen
	AteRed
	LengthZero
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case HitWall:
		return "hit wall"
	case HitSelf:
		return "hit self"
	case AteGreen:
		return "ate green apple"
	case AteRed:
		return "ate red apple"
	case LengthZero:
		return "length zero"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Fatal reports whether the outcome ends the game.
func (o Outcome) Fatal() bool {
	return o == HitWall || o == HitSelf || o == LengthZero
}

// Reward is the value Step hands to the agent for o. Anything that is not an
// apple or a death, Invalid included, costs one step.
func (o Outcome) Reward() mdp.Reward {
	switch o {
	case AteGreen:
		return RewardGreenApple
	case AteRed:
		return RewardRedApple
	case HitWall, HitSelf, LengthZero:
		return RewardDeath
	}
	return RewardStep
}

type point struct{ x, y int }

// Board holds one game. It is not safe for concurrent use.
type Board struct {
	size int
	grid []Cell
	// snake[0] is the head
	snake []point
	head  point

	score     int
	moves     int
	maxLength int
	gameOver  bool

	rng mdp.Rand
}

// New returns a board of the given size, already reset.
func New(size int, rng mdp.Rand) (*Board, error) {
	if size < MinSize {
		return nil, fmt.Errorf("%w, got %d", ErrSize, size)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	b := &Board{
		size: size,
		grid: make([]Cell, size*size),
		rng:  rng,
	}
	b.Reset()
	return b, nil
}

// Reset starts a new game: a vertical snake of three with its head at the
// bottom, then the green apples and the red apple on random empty cells.
func (b *Board) Reset() mdp.State {
	for i := range b.grid {
		b.grid[i] = Empty
	}
	x := 1 + b.rng.Intn(b.size-4)
	y := 1 + b.rng.Intn(b.size-4)
	b.snake = b.snake[:0]
	for i := startLength - 1; i >= 0; i-- {
		b.snake = append(b.snake, point{x, y + i})
	}
	b.head = b.snake[0]
	b.set(b.head, Head)
	for _, p := range b.snake[1:] {
		b.set(p, Body)
	}

	b.score = 0
	b.moves = 0
	b.maxLength = startLength
	b.gameOver = false

	for i := 0; i < GreenApples; i++ {
		b.spawn(GreenApple)
	}
	for i := 0; i < RedApples; i++ {
		b.spawn(RedApple)
	}
	return b.State()
}

func (b *Board) inside(p point) bool {
	return p.x >= 0 && p.x < b.size && p.y >= 0 && p.y < b.size
}

func (b *Board) set(p point, c Cell) { b.grid[p.y*b.size+p.x] = c }

// Cell returns the content of (x, y). Anything outside the grid is Wall.
func (b *Board) Cell(x, y int) Cell {
	p := point{x, y}
	if !b.inside(p) {
		return Wall
	}
	return b.grid[y*b.size+x]
}

func (b *Board) Size() int      { return b.size }
func (b *Board) Score() int     { return b.score }
func (b *Board) Length() int    { return len(b.snake) }
func (b *Board) MaxLength() int { return b.maxLength }
func (b *Board) Moves() int     { return b.moves }
func (b *Board) GameOver() bool { return b.gameOver }

// HeadPosition is where the head is, or was when the snake vanished.
func (b *Board) HeadPosition() (x, y int) { return b.head.x, b.head.y }

// spawn puts an apple of kind c on a random empty cell. A full board gets
// no apple.
func (b *Board) spawn(c Cell) {
	var free []point
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			if b.grid[y*b.size+x] == Empty {
				free = append(free, point{x, y})
			}
		}
	}
	if len(free) == 0 {
		return
	}
	b.set(free[b.rng.Intn(len(free))], c)
}

// Apples counts the apples of kind c on the grid.
func (b *Board) Apples(c Cell) int {
	n := 0
	for _, g := range b.grid {
		if g == c {
			n++
		}
	}
	return n
}
