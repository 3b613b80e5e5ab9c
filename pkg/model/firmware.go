package model

// FirmwareUpdateProgress tracks an in-flight firmware update.
type FirmwareUpdateProgress struct {
	data map[string]any
}

// NewFirmwareUpdateProgress wraps a raw firmware progress payload.
func NewFirmwareUpdateProgress(data map[string]any) *FirmwareUpdateProgress {
	return &FirmwareUpdateProgress{data: data}
}

func (p *FirmwareUpdateProgress) Data() map[string]any { return p.data }

// CurrentFile returns the 1-based index of the file being transferred.
func (p *FirmwareUpdateProgress) CurrentFile() int { return getInt(p.data, "currentFile") }
func (p *FirmwareUpdateProgress) TotalFiles() int  { return getInt(p.data, "totalFiles") }

func (p *FirmwareUpdateProgress) SentFragments() int  { return getInt(p.data, "sentFragments") }
func (p *FirmwareUpdateProgress) TotalFragments() int { return getInt(p.data, "totalFragments") }

// Progress returns the overall completion percentage.
func (p *FirmwareUpdateProgress) Progress() float64 {
	f, _ := getFloatOK(p.data, "progress")
	return f
}

// FirmwareUpdateResult is the outcome of a finished firmware update.
type FirmwareUpdateResult struct {
	data map[string]any
}

// NewFirmwareUpdateResult wraps a raw firmware result payload.
func NewFirmwareUpdateResult(data map[string]any) *FirmwareUpdateResult {
	return &FirmwareUpdateResult{data: data}
}

func (r *FirmwareUpdateResult) Data() map[string]any { return r.data }

func (r *FirmwareUpdateResult) Status() int   { return getInt(r.data, "status") }
func (r *FirmwareUpdateResult) Success() bool { return getBool(r.data, "success") }

// WaitTime returns the seconds to wait before interacting with the device
// again; ok is false when the server did not provide one.
func (r *FirmwareUpdateResult) WaitTime() (int, bool) { return getIntOK(r.data, "waitTime") }

// ReInterview reports whether the device will be re-interviewed after the
// update.
func (r *FirmwareUpdateResult) ReInterview() bool { return getBool(r.data, "reInterview") }
