package game

// Status is the lifecycle state reported by a game-over detector.
type Status string

const (
	StatusInProgress           Status = "IN_PROGRESS"
	StatusCheckmate            Status = "CHECKMATE"
	StatusStalemate            Status = "STALEMATE"
	StatusNoLegalMoves         Status = "NO_LEGAL_MOVES"
	StatusTimeForfeit          Status = "TIME_FORFEIT"
	StatusResignation          Status = "RESIGNATION"
	StatusScoreLimit           Status = "SCORE_LIMIT"
	StatusFiftyMoveRule        Status = "FIFTY_MOVE_RULE"
	StatusInsufficientMaterial Status = "INSUFFICIENT_MATERIAL"
	StatusNoProgress           Status = "NO_PROGRESS"
)

// Outcome is the detector verdict. Winner is NoColor for draws and running games.
type Outcome struct {
	Over    bool   `json:"is_game_over"`
	Status  Status `json:"status"`
	Winner  Color  `json:"winner,omitempty"`
	Details string `json:"details,omitempty"`
}

// InProgress is the verdict for a running game.
func InProgress() Outcome { return Outcome{Status: StatusInProgress} }

// Win ends a game in favour of winner.
func Win(status Status, winner Color, details string) Outcome {
	return Outcome{Over: true, Status: status, Winner: winner, Details: details}
}

// Draw ends a game without a winner.
func Draw(status Status, details string) Outcome {
	return Outcome{Over: true, Status: status, Details: details}
}

// IsDraw reports a finished game without a winner.
func (o Outcome) IsDraw() bool { return o.Over && o.Winner == NoColor }

// MoveResult is what the executor returns for an accepted move.
type MoveResult struct {
	Move         Move    `json:"move"`
	PointsGained int     `json:"points_gained"`
	Outcome      Outcome `json:"outcome"`
}
