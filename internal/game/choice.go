package game

// Choice is a player's move. The zero value None marks an unset slot and is
// never a legal committed choice.
type Choice int

const (
	None Choice = iota
	Rock
	Paper
	Scissors
)

func (c Choice) String() string {
	switch c {
	case None:
		return "none"
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	}
	return "invalid"
}

// ParseChoice decodes a wire or stored integer into a Choice. Out-of-range
// values return ErrInvalidChoice rather than panicking, so a corrupted value
// cannot take the host down.
func ParseChoice(v int) (Choice, error) {
	if v < int(None) || v > int(Scissors) {
		return None, ErrInvalidChoice
	}
	return Choice(v), nil
}

// ParseChoiceName decodes a choice by its wire name ("rock", "paper",
// "scissors"). None and unknown names are rejected.
func ParseChoiceName(name string) (Choice, error) {
	switch name {
	case "rock":
		return Rock, nil
	case "paper":
		return Paper, nil
	case "scissors":
		return Scissors, nil
	}
	return None, ErrInvalidChoice
}

// Playable reports whether c is a choice a player may commit.
func (c Choice) Playable() bool {
	return c == Rock || c == Paper || c == Scissors
}

// Beats reports whether c wins against other under the classic cyclic rule:
// rock beats scissors, paper beats rock, scissors beats paper.
func (c Choice) Beats(other Choice) bool {
	switch c {
	case Rock:
		return other == Scissors
	case Paper:
		return other == Rock
	case Scissors:
		return other == Paper
	}
	return false
}
