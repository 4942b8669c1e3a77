package logic

import (
	"bot_manager/dal"
	"bot_manager/shared"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"
)

const snapshotSuffix = ".diag.txt"

// IDiagnostics periodically writes a goroutine dump together with store
// counters into a directory, and purges old dumps.
type IDiagnostics interface {
	Start()
	Stop()
	WriteSnapshot() (string, error)
}

type diagnostics struct {
	logger   shared.ILogger
	repo     dal.IRepo
	dir      string
	keepDays int
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewDiagnostics(cfg *shared.Config, logger shared.ILogger, repo dal.IRepo) IDiagnostics {
	return &diagnostics{
		logger:   logger,
		repo:     repo,
		dir:      cfg.Diagnostics.Dir,
		keepDays: cfg.Diagnostics.KeepDays,
		interval: time.Duration(cfg.Diagnostics.IntervalSec) * time.Second,
	}
}

// Start is a no-op unless both a directory and an interval are configured.
func (d *diagnostics) Start() {
	if d.dir == "" || d.interval <= 0 {
		return
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.logger.Errorf("Cannot create diagnostics dir %s: %v", d.dir, err)
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.loop()
}

func (d *diagnostics) Stop() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop = nil
}

func (d *diagnostics) loop() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if _, err := d.WriteSnapshot(); err != nil {
				d.logger.Warnf("Failed to write diagnostics snapshot: %v", err)
			}
			if err := d.purgeOld(); err != nil {
				d.logger.Warnf("Failed to purge old diagnostics: %v", err)
			}
		}
	}
}

// WriteSnapshot writes one dump and returns its path.
func (d *diagnostics) WriteSnapshot() (string, error) {
	ts := time.Now().UTC().Format("2006-01-02!15-04-05")
	path := filepath.Join(d.dir, ts+snapshotSuffix)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	activeReplies, err := d.repo.CountActiveReplies()
	if err != nil {
		return "", err
	}
	accts, err := d.repo.GetAccounts()
	if err != nil {
		return "", err
	}
	if _, err = fmt.Fprintf(f, "Accounts: %d\nActive reply relationships: %d\nGoroutine count: %d\n\n",
		len(accts), activeReplies, runtime.NumGoroutine()); err != nil {
		return "", err
	}
	if err = pprof.Lookup("goroutine").WriteTo(f, 2); err != nil {
		return "", err
	}
	return path, nil
}

func (d *diagnostics) purgeOld() error {
	if d.keepDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -d.keepDays)
	return filepath.Walk(d.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, snapshotSuffix) {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			return os.Remove(path)
		}
		return nil
	})
}
