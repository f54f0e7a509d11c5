package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mixoploidy8031/suprsafe/internal/config"
	"github.com/mixoploidy8031/suprsafe/internal/crypto"
	"github.com/mixoploidy8031/suprsafe/internal/database"
	"github.com/mixoploidy8031/suprsafe/internal/fs"
	"github.com/mixoploidy8031/suprsafe/internal/recovery"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
	"github.com/mixoploidy8031/suprsafe/internal/vault"
)

// SafeApp is the application layer between the CLI and SafeService.
// It constructs all dependencies from config, exposes high-level
// operations that accept raw string paths, and manages the store
// lifecycle on Close.
type SafeApp struct {
	cfg       *config.Config
	store     suprsafe.Store
	escrow    suprsafe.EscrowVault
	fsmgr     suprsafe.FilesystemManager
	gate      *suprsafe.AccountGate
	adminGate *suprsafe.AccountGate
	service   *suprsafe.SafeService
	exporter  *recovery.Exporter
	logFile   *os.File
}

// NewSafeApp creates a fully wired SafeApp from the given config.
// operation identifies the CLI command being run (e.g. "Encrypt",
// "Decrypt"). The caller must call Close when done.
func NewSafeApp(cfg *config.Config, operation string) (*SafeApp, error) {
	fsmgr := fs.NewOSFilesystemManager()
	eraser := fs.NewOverwriteEraser(cfg.Erase.Passes)
	deriver := crypto.NewPBKDF2Deriver(cfg.KDF.Iterations)
	cipher := crypto.NewGCMCipher()
	random := suprsafe.CryptoRandomSource{}

	store, err := database.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	var escrow suprsafe.EscrowVault
	if len(cfg.Escrow) > 0 {
		escrow, err = vault.NewVaultFromConfig(cfg.Escrow[0])
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating escrow vault: %w", err)
		}
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID+"-"+operation)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	gate := suprsafe.NewAccountGate(cfg.Auth.AccountRecordPath, deriver, fsmgr, random)
	adminGate := suprsafe.NewAccountGate(cfg.Auth.AdminRecordPath, deriver, fsmgr, random)

	// Lockout only arms when SuprSafe+ was actually set up: the config
	// flag alone is not enough without an admin record to administer it.
	armed := cfg.Lockout.Enabled && adminGate.IsConfigured()
	guard := suprsafe.NewLockoutGuard(store, eraser, fsmgr, logger, cfg.Lockout.MaxAttempts, armed)

	keyvault := suprsafe.NewKeyVault(deriver, cipher, random)
	codec := suprsafe.NewFileCodec(cipher, fsmgr, random, logger)
	svc := suprsafe.NewSafeService(store, escrow, fsmgr, eraser, gate, guard, keyvault, codec, logger)

	return &SafeApp{
		cfg:       cfg,
		store:     store,
		escrow:    escrow,
		fsmgr:     fsmgr,
		gate:      gate,
		adminGate: adminGate,
		service:   svc,
		exporter:  recovery.NewExporter(nil),
		logFile:   logFile,
	}, nil
}

// IsSetUp returns true if the account record exists.
func (a *SafeApp) IsSetUp() bool {
	return a.gate.IsConfigured()
}

// IsPlusSetUp returns true if the SuprSafe+ admin record exists.
func (a *SafeApp) IsPlusSetUp() bool {
	return a.adminGate.IsConfigured()
}

// Setup initializes the account record on first run. When adminPassword
// is non-empty, the SuprSafe+ admin record is created as well; the two
// passwords must differ, otherwise the admin gate adds nothing.
func (a *SafeApp) Setup(password, adminPassword string) error {
	if err := a.gate.Initialize(password); err != nil {
		return fmt.Errorf("initializing account record: %w", err)
	}
	if adminPassword != "" {
		if adminPassword == password {
			return fmt.Errorf("admin password must differ from the account password: %w", suprsafe.ErrInvalidInput)
		}
		if err := a.adminGate.Initialize(adminPassword); err != nil {
			return fmt.Errorf("initializing admin record: %w", err)
		}
	}
	return nil
}

// VerifyAdmin checks the SuprSafe+ admin password.
func (a *SafeApp) VerifyAdmin(password string) (bool, error) {
	return a.adminGate.Verify(password)
}

// ConfigureLockout turns the SuprSafe+ destructive wipe on or off. Only
// the admin password can change the setting; the caller persists the
// updated config.
func (a *SafeApp) ConfigureLockout(adminPassword string, enabled bool) error {
	if !a.adminGate.IsConfigured() {
		return fmt.Errorf("SuprSafe+ is not set up: %w", suprsafe.ErrInvalidInput)
	}
	ok, err := a.VerifyAdmin(adminPassword)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("wrong admin password: %w", suprsafe.ErrAuthentication)
	}
	a.cfg.Lockout.Enabled = enabled
	return nil
}

// Config returns the live configuration, so the CLI can persist changes
// made through ConfigureLockout.
func (a *SafeApp) Config() *config.Config {
	return a.cfg
}

// Encrypt resolves the given path and runs the encrypt flow over it.
// Returns the number of files encrypted.
func (a *SafeApp) Encrypt(rawPath, password, mainKey string) (int, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.EncryptDirectory(p, password, mainKey)
}

// Decrypt resolves the given path and runs the decrypt flow over it.
// Returns the number of files decrypted.
func (a *SafeApp) Decrypt(rawPath, password, mainKey string) (int, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.DecryptDirectory(p, password, mainKey)
}

// History returns the most recent recorded operations.
func (a *SafeApp) History(limit int) ([]*suprsafe.Operation, error) {
	return a.service.History(limit)
}

// ExportBundle writes a passphrase-protected recovery bundle to
// destPath. It always includes the account records; when dirRaw is
// non-empty the directory's wrapped-key blob is included too.
func (a *SafeApp) ExportBundle(destPath, passphrase, dirRaw string) (int, error) {
	files := map[string]string{
		"auth/account.bin": a.cfg.Auth.AccountRecordPath,
		"auth/admin.bin":   a.cfg.Auth.AdminRecordPath,
	}
	if dirRaw != "" {
		p, err := a.fsmgr.Resolve(dirRaw)
		if err != nil {
			return 0, fmt.Errorf("resolving path: %w", err)
		}
		files[filepath.Join(suprsafe.KeyBlobDir, suprsafe.KeyBlobName)] =
			filepath.Join(p.String(), suprsafe.KeyBlobDir, suprsafe.KeyBlobName)
	}

	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return 0, fmt.Errorf("creating bundle file: %w", err)
	}
	defer f.Close()

	count, err := a.exporter.Export(f, passphrase, files)
	if err != nil {
		os.Remove(destPath)
		return count, err
	}
	return count, nil
}

// ImportBundle decrypts a recovery bundle and restores its files under
// destDir. Returns the restored paths.
func (a *SafeApp) ImportBundle(bundlePath, passphrase, destDir string) ([]string, error) {
	f, err := os.Open(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("opening bundle file: %w", err)
	}
	defer f.Close()

	return a.exporter.Import(f, passphrase, destDir)
}

// ValidateEscrow checks that the configured escrow vault is reachable.
func (a *SafeApp) ValidateEscrow() error {
	if a.escrow == nil {
		return fmt.Errorf("no escrow vault configured")
	}
	return a.escrow.ValidateSetup()
}

// Close releases the store and the log file.
func (a *SafeApp) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
