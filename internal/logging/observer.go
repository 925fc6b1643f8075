package logging

import (
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/reconcile"
)

type zapObserver struct {
	logger *zap.Logger
}

// NewObserver reports contained comparison failures as warnings.
func NewObserver(logger *zap.Logger) reconcile.Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapObserver{logger: logger.Named("reconcile")}
}

func (o *zapObserver) TreeMissing(side reconcile.Side, root string) {
	o.logger.Warn("tree does not exist, treating it as empty",
		zap.String("side", string(side)),
		zap.String("root", root))
}

func (o *zapObserver) PathFailed(err *reconcile.ComparisonIOError) {
	o.logger.Warn("could not read file",
		zap.String("side", string(err.Side)),
		zap.String("path", err.Path),
		zap.Error(err.Err))
}

func (o *zapObserver) DiffFailed(path string, err error) {
	o.logger.Warn("could not produce diff", zap.String("path", path), zap.Error(err))
}
