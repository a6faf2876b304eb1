package sandbox

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"nekroagent/sandboxd/internal/logging"
	"nekroagent/sandboxd/internal/store"
	"nekroagent/sandboxd/internal/submitauth"
)

const (
	sandboxMemoryLimitBytes = 512 * 1024 * 1024
	sandboxNanoCPUs         = 1_000_000_000 // 1.0 core
	sandboxUser             = "nobody"

	launcherScript = `rm -f /app/run_script.py &&
cp /app/shared/run_script.py.code /app/run_script.py &&
cp /app/shared/api_caller.py.code /app/api_caller.py &&
export MPLCONFIGDIR=/app/tmp/matplotlib &&
python run_script.py
exit_code=$?
case $exit_code in
  0) echo "[SANDBOX_RUN_ENDS_WITH_NORMAL]";;
  8) echo "[SANDBOX_RUN_ENDS_WITH_AGENT]";;
  9) echo "[SANDBOX_RUN_ENDS_WITH_MANUAL]";;
  *) echo "[SANDBOX_RUN_ENDS_WITH_ERROR]";;
esac
`
)

// Manager is the Container Lifecycle Manager: it owns the Docker client,
// the per-session registry, the admission gate, the path mapper, and the
// execution record sink, and implements Submit end to end.
type Manager struct {
	cli       *client.Client
	registry  *Registry
	admission *Admission
	paths     *PathMapper
	sink      store.Sink
	tokens    *submitauth.TokenService

	imageName      string
	runningTimeout time.Duration
	runInDocker    bool
	hostBaseURL    string
}

// NewManager wires together one Container Lifecycle Manager.
func NewManager(cli *client.Client, registry *Registry, admission *Admission, paths *PathMapper, sink store.Sink, tokens *submitauth.TokenService, imageName, hostBaseURL string, runningTimeout time.Duration, runInDocker bool) *Manager {
	return &Manager{
		cli:            cli,
		registry:       registry,
		admission:      admission,
		paths:          paths,
		sink:           sink,
		tokens:         tokens,
		imageName:      imageName,
		hostBaseURL:    hostBaseURL,
		runningTimeout: runningTimeout,
		runInDocker:    runInDocker,
	}
}

// Submit runs req.CodeText inside a disposable container for req.ChatKey
// end to end: admit, prepare the share directory, replace the session
// slot, launch, wait with a hard timeout, classify, persist, schedule
// idle GC, and return the truncated output and stop type (spec §4.5).
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	req.applyDefaults()
	startTime := time.Now()

	if err := m.admission.Acquire(ctx); err != nil {
		return SubmitResult{}, fmt.Errorf("admission: %w", err)
	}
	defer m.admission.Release()

	containerKey := "sandbox_" + req.ChatKey
	suffix, err := randomHex(4)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: random container suffix: %v", ErrLaunchFailed, err)
	}
	containerName := "nekro-agent-sandbox-" + containerKey + "-" + suffix

	shareDir := filepath.Join(m.paths.SharedRoot(), containerKey)
	if err := os.MkdirAll(shareDir, 0o777); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: create share dir: %v", ErrLaunchFailed, err)
	}
	if err := writeShareFiles(shareDir, req, containerKey); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: write share files: %v", ErrLaunchFailed, err)
	}
	chmodShareDir(shareDir)

	uploadDir := filepath.Join(m.paths.UploadRoot(), req.ChatKey)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: create upload dir: %v", ErrLaunchFailed, err)
	}

	var teardownWarning string
	if err := m.registry.ReplaceSession(ctx, req.ChatKey, ContainerHandle{}, m.destroyContainer); err != nil {
		teardownWarning = err.Error()
		logging.L().Warn("replace session slot: prior container teardown failed",
			zap.String("chat_key", req.ChatKey), zap.Error(err))
	}

	bridgeToken, err := m.tokens.Mint(containerKey, req.ChatKey, m.runningTimeout+time.Minute)
	if err != nil {
		m.registry.ForgetContainer(req.ChatKey, ContainerHandle{})
		return SubmitResult{}, fmt.Errorf("%w: mint bridge token: %v", ErrLaunchFailed, err)
	}

	containerID, err := m.launch(ctx, containerName, shareDir, uploadDir, req.ChatKey, bridgeToken)
	if err != nil {
		m.registry.ForgetContainer(req.ChatKey, ContainerHandle{})
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	m.registry.ReplaceSession(ctx, req.ChatKey, ContainerHandle{ID: containerID, Name: containerName}, nil)

	rawOutput, stopType := m.waitAndCollect(ctx, containerID, req.ChatKey)

	execTimeMs := time.Since(startTime).Milliseconds()
	totalTimeMs := req.GenerationTimeMs + execTimeMs

	senderID := req.TriggerSenderID
	senderName := req.TriggerSenderName
	if senderName == "" {
		senderName = "System"
	}

	record := store.ExecutionRecord{
		ChatKey:          req.ChatKey,
		CodeText:         req.CodeText,
		ThoughtChain:     req.CotContent,
		CapturedOutput:   rawOutput,
		SuccessFlag:      stopType.Succeeded(),
		StopType:         stopType.String(),
		ExecTimeMs:       execTimeMs,
		GenerationTimeMs: req.GenerationTimeMs,
		TotalTimeMs:      totalTimeMs,
		TriggerUserID:    senderID,
		TriggerUserName:  senderName,
		TeardownWarning:  teardownWarning,
	}
	if err := m.sink.Insert(ctx, record); err != nil {
		logging.L().Warn("execution record insert failed", zap.String("chat_key", req.ChatKey), zap.Error(err))
	}

	now := m.registry.SetLastActivity(req.ChatKey, time.Now())
	cleanup := ScheduleIdleGC(m.registry, req.ChatKey, shareDir, ContainerHandle{ID: containerID, Name: containerName}, now, m.destroyContainerBestEffort)
	m.registry.SetCleanupTask(req.ChatKey, cleanup)

	if logging.L().Core().Enabled(zap.DebugLevel) {
		logging.L().Debug("sandbox execution output", zap.String("chat_key", req.ChatKey), zap.String("preview", previewOutput(rawOutput)))
	}

	return SubmitResult{
		DisplayOutput: truncate(rawOutput, req.OutputLimit),
		StopType:      stopType,
	}, nil
}

func (m *Manager) launch(ctx context.Context, containerName, shareDir, uploadDir, chatKey, bridgeToken string) (string, error) {
	mounts := []mount.Mount{
		{Type: mount.TypeBind, Source: shareDir, Target: "/app/shared"},
		{Type: mount.TypeBind, Source: uploadDir, Target: "/app/uploads", ReadOnly: true},
	}

	var securityOpt []string
	if !m.runInDocker {
		securityOpt = []string{"apparmor=unconfined"}
	}

	hostConfig := &container.HostConfig{
		Mounts:      mounts,
		SecurityOpt: securityOpt,
		AutoRemove:  true,
		NetworkMode: "bridge",
		Resources: container.Resources{
			Memory:   sandboxMemoryLimitBytes,
			NanoCPUs: sandboxNanoCPUs,
		},
		ExtraHosts: []string{"host.docker.internal:host-gateway"},
	}

	env := []string{
		"NEKRO_BRIDGE_TOKEN=" + bridgeToken,
	}
	if m.hostBaseURL != "" {
		env = append(env, "NEKRO_HOST_BASE_URL="+m.hostBaseURL)
	}

	created, err := m.cli.ContainerCreate(ctx, &container.Config{
		Image:        m.imageName,
		Cmd:          []string{"bash", "-c", launcherScript},
		Env:          env,
		User:         sandboxUser,
		WorkingDir:   "/app",
		AttachStdout: true,
		AttachStderr: true,
	}, hostConfig, &network.NetworkingConfig{}, nil, containerName)
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}

	if err := m.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		_ = m.cli.ContainerRemove(context.Background(), created.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("container start: %w", err)
	}

	logging.L().Info("sandbox container launched",
		zap.String("chat_key", chatKey), zap.String("container_id", created.ID), zap.String("container_name", containerName))

	return created.ID, nil
}

// waitAndCollect waits for containerID to exit under the configured hard
// deadline, fetches its combined logs, classifies the result, and ensures
// the container is gone by the time it returns.
func (m *Manager) waitAndCollect(ctx context.Context, containerID, chatKey string) (string, StopType) {
	waitCtx, cancel := context.WithTimeout(ctx, m.runningTimeout)
	defer cancel()

	waitCh, errCh := m.cli.ContainerWait(waitCtx, containerID, container.WaitConditionNotRunning)

	select {
	case <-waitCh:
		output := m.fetchLogs(context.Background(), containerID)
		m.destroyContainerBestEffort(context.Background(), ContainerHandle{ID: containerID})
		stopType, cleaned := Classify(output)
		return cleaned, stopType

	case err := <-errCh:
		logging.L().Warn("container wait error", zap.String("chat_key", chatKey), zap.String("container_id", containerID), zap.Error(err))
		output := m.fetchLogs(context.Background(), containerID)
		m.destroyContainerBestEffort(context.Background(), ContainerHandle{ID: containerID})
		stopType, cleaned := Classify(output)
		return cleaned, stopType

	case <-waitCtx.Done():
		output := m.fetchLogs(context.Background(), containerID)
		output += fmt.Sprintf("\n# This container has been killed because it exceeded the %d seconds limit.", int(m.runningTimeout.Seconds()))
		_ = m.cli.ContainerKill(context.Background(), containerID, "SIGKILL")
		m.destroyContainerBestEffort(context.Background(), ContainerHandle{ID: containerID})
		return StripSentinels(output), StopTimeout
	}
}

func (m *Manager) fetchLogs(ctx context.Context, containerID string) string {
	rc, err := m.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		if !isNotFound(err) {
			logging.L().Warn("fetch container logs failed", zap.String("container_id", containerID), zap.Error(err))
		}
		return ""
	}
	defer rc.Close()

	var combined bytes.Buffer
	if _, err := stdcopy.StdCopy(&combined, &combined, rc); err != nil {
		logging.L().Warn("demultiplex container logs failed", zap.String("container_id", containerID), zap.Error(err))
	}
	return combined.String()
}

// destroyContainer satisfies ContainerDestroyer: used by ReplaceSession to
// tear down the chat key's prior container. "Not found" counts as success
// (spec §4.5 step 3, the REDESIGN FLAG at Design Notes §9).
func (m *Manager) destroyContainer(ctx context.Context, h ContainerHandle) error {
	if h.ID == "" {
		return nil
	}
	if err := m.cli.ContainerRemove(ctx, h.ID, container.RemoveOptions{Force: true}); err != nil && !isNotFound(err) {
		return fmt.Errorf("remove container %s: %w", h.ID, err)
	}
	return nil
}

// destroyContainerBestEffort ignores every error, including "not found",
// matching the idle-GC and post-wait teardown paths which must never fail
// the caller over a container that is already gone.
func (m *Manager) destroyContainerBestEffort(ctx context.Context, h ContainerHandle) {
	if h.ID == "" {
		return
	}
	if err := m.cli.ContainerRemove(ctx, h.ID, container.RemoveOptions{Force: true}); err != nil && !isNotFound(err) {
		logging.L().Debug("best-effort container removal failed", zap.String("container_id", h.ID), zap.Error(err))
	}
}

func writeShareFiles(shareDir string, req SubmitRequest, containerKey string) error {
	runScript := RenderCodePreamble(req.CodeText)
	if err := os.WriteFile(filepath.Join(shareDir, "run_script.py.code"), []byte(runScript), 0o644); err != nil {
		return err
	}

	apiCaller := RenderAPICaller(containerKey, req.ChatKey)
	if err := os.WriteFile(filepath.Join(shareDir, "api_caller.py.code"), []byte(apiCaller), 0o644); err != nil {
		return err
	}
	return nil
}

// chmodShareDir relaxes the share directory to world-rwx so the
// unprivileged in-container user can read and write the mount. Failure is
// logged, not fatal, matching the original's try/except-and-continue.
func chmodShareDir(shareDir string) {
	if err := os.Chmod(shareDir, 0o777); err != nil {
		logging.L().Warn("chmod share dir failed", zap.String("shared_dir", shareDir), zap.Error(err))
	}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func previewOutput(output string) string {
	const maxPreview = 500
	r := []rune(output)
	if len(r) <= maxPreview {
		return output
	}
	return string(r[:maxPreview]) + "..."
}
