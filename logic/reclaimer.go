package logic

import (
	"bot_manager/shared"
	"time"
)

// IReclaimer runs the orphan sweep periodically in the background.
type IReclaimer interface {
	Start()
	Stop()
}

type reclaimer struct {
	logger   shared.ILogger
	cmds     ICommands
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewReclaimer(cfg *shared.Config, logger shared.ILogger, cmds ICommands) IReclaimer {
	return &reclaimer{
		logger:   logger,
		cmds:     cmds,
		interval: time.Duration(cfg.ReclaimIntervalSec) * time.Second,
	}
}

// Start launches the sweep loop. A zero interval disables it.
func (r *reclaimer) Start() {
	if r.interval <= 0 {
		r.logger.Info("Periodic reclaim is disabled")
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop()
}

func (r *reclaimer) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop = nil
}

func (r *reclaimer) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *reclaimer) sweep() {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("Reclaim sweep panicked: %v", p)
		}
	}()
	removed, err := r.cmds.ReclaimOrphans()
	if err != nil {
		r.logger.Errorf("Periodic reclaim failed: %v", err)
		return
	}
	r.logger.Debugf("Periodic reclaim removed %d active reply relationships", removed)
}
