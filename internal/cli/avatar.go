package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"genvid/internal/adapters/visual"
	"genvid/internal/service"
	"genvid/internal/signer"
)

var avatarFlags struct {
	image string
	audio string
}

func init() {
	avatarCmd.Flags().StringVarP(&avatarFlags.image, "image", "i", "", "subject portrait (required)")
	avatarCmd.Flags().StringVarP(&avatarFlags.audio, "audio", "a", "", "driving audio clip (required)")

	rootCmd.AddCommand(avatarCmd)
}

var avatarCmd = &cobra.Command{
	Use:   "avatar",
	Short: "Generate a talking-head video from a portrait and audio",
	Long: `Generate an audio-driven talking-head clip. The portrait is validated by
a subject-identification task first; generation only starts once the
service confirms a usable subject.`,
	RunE: runAvatar,
}

func runAvatar(cmd *cobra.Command, args []string) error {
	if err := requireFile(avatarFlags.image, "image"); err != nil {
		return err
	}
	if err := requireFile(avatarFlags.audio, "audio"); err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.creds.RequireVisual(); err != nil {
		return err
	}

	visualClient := visual.New(
		visual.Config{
			SubmitURL:   e.cfg.Visual.SubmitURL(),
			ResultURL:   e.cfg.Visual.ResultURL(),
			RoleReqKey:  e.cfg.Visual.RoleReqKey,
			VideoReqKey: e.cfg.Visual.VideoReqKey,
		},
		e.creds.Visual,
		signer.Scope{Region: e.cfg.Visual.Region, Service: e.cfg.Visual.Service},
		e.log,
	)
	orch := service.NewOrchestrator(nil, visualClient, e.uploader(), e.dl, e.storage, e.poller, e.history, e.log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := orch.Avatar(ctx, service.AvatarRequest{
		ImagePath: avatarFlags.image,
		AudioPath: avatarFlags.audio,
	})
	if err != nil {
		return err
	}
	return printSummary(res)
}
