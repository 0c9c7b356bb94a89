package assembler

import (
	"context"
	"log/slog"
)

// LevelTrace is the level of per-instruction records, below Debug.
const LevelTrace slog.Level = slog.LevelDebug - 4

func (asm *Assembler) trace(msg string, args ...any) {
	asm.log.Log(context.Background(), LevelTrace, msg, args...)
}
