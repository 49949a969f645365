package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	grpcx "github.com/cwrk-planet/call-service/internal/transport/grpc"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// rooms: админ-команды поверх gRPC RoomAdmin.
func newRoomsCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Inspect and create rooms on a running server",
	}
	cmd.PersistentFlags().StringVar(&addr, "grpc-addr", "localhost:9090", "admin gRPC address")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "call timeout")

	withClient := func(cmd *cobra.Command, fn func(ctx context.Context, c *grpcx.RoomAdminClient) (any, error)) error {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		out, err := fn(ctx, grpcx.NewRoomAdminClient(conn))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create [room-id]",
			Short: "Create a room (id is generated when omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				}
				return withClient(cmd, func(ctx context.Context, c *grpcx.RoomAdminClient) (any, error) {
					roomID, err := c.CreateRoom(ctx, id)
					return map[string]string{"roomId": roomID}, err
				})
			},
		},
		&cobra.Command{
			Use:   "get <room-id>",
			Short: "Show a room",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(ctx context.Context, c *grpcx.RoomAdminClient) (any, error) {
					return c.GetRoom(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List rooms",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(ctx context.Context, c *grpcx.RoomAdminClient) (any, error) {
					return c.ListRooms(ctx)
				})
			},
		},
	)
	return cmd
}
