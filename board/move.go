package board

import "github.com/CodeStranger-Fred/slither/mdp"

// Move advances the snake one cell. Once the game is over every move is
// Invalid and nothing changes.
func (b *Board) Move(d Direction) Outcome {
	if b.gameOver {
		return Invalid
	}
	dx, dy, ok := d.delta()
	if !ok {
		return Invalid
	}
	b.moves++

	next := point{b.head.x + dx, b.head.y + dy}
	if !b.inside(next) {
		b.gameOver = true
		return HitWall
	}

	switch b.Cell(next.x, next.y) {
	case Head, Body:
		// the tail has not moved yet, so running into it is fatal too
		b.gameOver = true
		return HitSelf
	case GreenApple:
		b.advance(next, true)
		b.score += 10
		if len(b.snake) > b.maxLength {
			b.maxLength = len(b.snake)
		}
		b.spawn(GreenApple)
		return AteGreen
	case RedApple:
		b.score -= 10
		if len(b.snake) == 1 {
			b.set(b.head, Empty)
			b.set(next, Empty)
			b.snake = b.snake[:0]
			b.head = next
			b.gameOver = true
			b.spawn(RedApple)
			return LengthZero
		}
		b.advance(next, false)
		b.dropTail()
		b.spawn(RedApple)
		return AteRed
	}

	b.advance(next, false)
	return Moved
}

func (b *Board) advance(p point, grow bool) {
	b.set(b.head, Body)
	b.snake = append(b.snake, point{})
	copy(b.snake[1:], b.snake)
	b.snake[0] = p
	b.head = p
	b.set(p, Head)
	if !grow {
		b.dropTail()
	}
}

func (b *Board) dropTail() {
	last := len(b.snake) - 1
	b.set(b.snake[last], Empty)
	b.snake = b.snake[:last]
}

// State packs what the head sees in its four neighbouring cells into twelve
// bits, three per cell: up<<9 | left<<6 | down<<3 | right.
func (b *Board) State() mdp.State {
	x, y := b.head.x, b.head.y
	return mdp.State(b.Cell(x, y-1))<<9 |
		mdp.State(b.Cell(x-1, y))<<6 |
		mdp.State(b.Cell(x, y+1))<<3 |
		mdp.State(b.Cell(x+1, y))
}

// Step moves in the direction a and returns the new state, its reward and
// whether the game ended. It makes the board an mdp.Environment.
func (b *Board) Step(a mdp.Action) (mdp.State, mdp.Reward, bool) {
	out := b.Move(Direction(a))
	return b.State(), out.Reward(), b.gameOver
}

var (
	_ mdp.Environment = (*Board)(nil)
	_ mdp.Progress    = (*Board)(nil)
)
