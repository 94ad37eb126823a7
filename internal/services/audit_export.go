package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/telemetry"
	"github.com/blogprojesi/backend/internal/utils"
)

// Uploader stores one named file at the export destination.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
}

type SFTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

// SFTPUploader writes export files to a remote directory over SFTP. Each
// upload opens and closes its own connection.
type SFTPUploader struct {
	cfg SFTPConfig
}

func NewSFTPUploader(cfg SFTPConfig) *SFTPUploader {
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SFTPUploader{cfg: cfg}
}

func (u *SFTPUploader) Upload(ctx context.Context, name string, data []byte) error {
	if u.cfg.Host == "" {
		return invalid("SFTP host is not configured")
	}
	clientCfg := &ssh.ClientConfig{
		User:            u.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(u.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         u.cfg.Timeout,
	}
	addr := fmt.Sprintf("%s:%d", u.cfg.Host, u.cfg.Port)
	conn, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return fmt.Errorf("sftp dial %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("sftp client: %w", err)
	}
	defer client.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	target := name
	if u.cfg.Dir != "" {
		if err := client.MkdirAll(u.cfg.Dir); err != nil {
			return fmt.Errorf("sftp mkdir %s: %w", u.cfg.Dir, err)
		}
		target = path.Join(u.cfg.Dir, name)
	}
	f, err := client.Create(target)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", target, err)
	}
	return writeAndClose(f, target, data)
}

// writeAndClose writes data and closes w. The close error is returned since
// the remote file is only complete once it has been flushed.
func writeAndClose(w io.WriteCloser, target string, data []byte) error {
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("sftp write %s: %w", target, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sftp close %s: %w", target, err)
	}
	return nil
}

var auditCSVHeader = []string{
	"id", "created_at", "admin_id", "admin_username", "action_type",
	"action", "target_type", "target_id", "details", "ip_address",
}

// AuditExporter ships the previous local day of audit entries as CSV.
type AuditExporter struct {
	audit    *AuditLogService
	uploader Uploader
	loc      *time.Location
	now      func() time.Time
}

func NewAuditExporter(audit *AuditLogService, uploader Uploader, loc *time.Location) *AuditExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &AuditExporter{audit: audit, uploader: uploader, loc: loc, now: time.Now}
}

// ExportFileName is the name of the export covering day.
func ExportFileName(day time.Time) string {
	return "admin-logs-" + day.Format(time.DateOnly) + ".csv"
}

// ExportPreviousDay uploads yesterday's entries, oldest first. An empty day
// still produces a file with the header row.
func (e *AuditExporter) ExportPreviousDay(ctx context.Context) error {
	today := utils.StartOfDay(e.now(), e.loc)
	yesterday := today.AddDate(0, 0, -1)

	entries, err := e.audit.EntriesBetween(ctx, yesterday, today.Add(-time.Nanosecond))
	if err != nil {
		telemetry.AuditExportsTotal.WithLabelValues("error").Inc()
		return err
	}
	data, err := auditCSV(entries, e.loc)
	if err != nil {
		telemetry.AuditExportsTotal.WithLabelValues("error").Inc()
		return err
	}
	name := ExportFileName(yesterday)
	if err := e.uploader.Upload(ctx, name, data); err != nil {
		telemetry.AuditExportsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("upload %s: %w", name, err)
	}
	telemetry.AuditExportsTotal.WithLabelValues("success").Inc()
	slog.Info("audit log exported", "file", name, "entries", len(entries))
	return nil
}

func auditCSV(entries []models.AdminLog, loc *time.Location) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(auditCSVHeader); err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		l := entries[i]
		targetID := ""
		if l.TargetID != nil {
			targetID = strconv.FormatUint(uint64(*l.TargetID), 10)
		}
		row := []string{
			strconv.FormatUint(uint64(l.ID), 10),
			l.CreatedAt.In(loc).Format(time.RFC3339),
			strconv.FormatUint(uint64(l.AdminID), 10),
			csvCell(l.AdminUsername),
			string(l.ActionType),
			csvCell(l.Action),
			csvCell(deref(l.TargetType)),
			targetID,
			csvCell(deref(l.Details)),
			csvCell(deref(l.IPAddress)),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write audit csv: %w", err)
	}
	return buf.Bytes(), nil
}

// csvCell prefixes text that a spreadsheet would evaluate as a formula.
func csvCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
