package logger

import (
	"os"
	"sync"
	"time"
)

// dailyFile is a zapcore.WriteSyncer that appends to the category file of the current day
type dailyFile struct {
	logsDir  string
	category LogCategory
	now      func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func openDailyFile(logsDir string, category LogCategory, now func() time.Time) (*dailyFile, error) {
	d := &dailyFile{logsDir: logsDir, category: category, now: now}
	if err := d.rotate(now()); err != nil {
		return nil, err
	}
	return d, nil
}

// rotate switches to the file of t's day; callers hold mu except during construction
func (d *dailyFile) rotate(t time.Time) error {
	file, err := os.OpenFile(CategoryLogPath(d.logsDir, d.category, t), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if d.file != nil {
		d.file.Close()
	}
	d.file = file
	d.day = t.Format("20060102")
	return nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return 0, os.ErrClosed
	}
	if t := d.now(); t.Format("20060102") != d.day {
		if err := d.rotate(t); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

func (d *dailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
