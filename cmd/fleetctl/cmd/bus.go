package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

var (
	busDBPath  string
	busPlate   string
	busAlias   string
	busAllFlag bool
)

// busCmd represents the bus command group
var busCmd = &cobra.Command{
	Use:   "bus",
	Short: "Fleet vehicle management commands",
	Long: `Commands for managing fleet vehicles.

These commands operate directly on the database file and are intended
for initial fleet registration and maintenance.

Examples:
  # Register a vehicle
  fleetctl bus add --plate AB-123-CD --alias "Line 42"

  # List active vehicles
  fleetctl bus list

  # List all vehicles, including deactivated ones
  fleetctl bus list --all`,
}

// busAddCmd registers a new vehicle
var busAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new vehicle",
	Long: `Register a new vehicle in the fleet.

The plate is the vehicle's identity and must be unique. Plates are
stored uppercased. The alias is an optional human-friendly label
shown in listings and notifications.

Example:
  fleetctl bus add --plate AB-123-CD --alias "Line 42"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plate := strings.ToUpper(strings.TrimSpace(busPlate))
		if plate == "" {
			return fmt.Errorf("--plate is required")
		}

		store, err := openDatabase(busDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		existing, err := store.Buses().GetByPlate(ctx, plate)
		if err != nil {
			return fmt.Errorf("check plate: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("plate '%s' already registered", plate)
		}

		bus := models.NewBus(plate, strings.TrimSpace(busAlias))
		if err := store.Buses().Create(ctx, bus); err != nil {
			return fmt.Errorf("create bus: %w", err)
		}

		fmt.Printf("\nVehicle registered:\n")
		fmt.Printf("  ID:    %s\n", bus.ID)
		fmt.Printf("  Plate: %s\n", bus.Plate)
		if bus.Alias != "" {
			fmt.Printf("  Alias: %s\n", bus.Alias)
		}

		return nil
	},
}

// busListCmd lists fleet vehicles
var busListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fleet vehicles",
	Long: `List vehicles in the fleet.

By default only active vehicles are shown. Use --all to include
deactivated vehicles.

Example:
  fleetctl bus list --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(busDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		buses, err := store.Buses().List(ctx, !busAllFlag)
		if err != nil {
			return fmt.Errorf("list buses: %w", err)
		}

		if len(buses) == 0 {
			fmt.Println("No vehicles found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-12s  %-20s  %-7s  %s\n",
			"ID", "PLATE", "ALIAS", "ACTIVE", "CREATED")
		fmt.Println(strings.Repeat("-", 95))

		for _, b := range buses {
			fmt.Printf("%-36s  %-12s  %-20s  %-7t  %s\n",
				b.ID,
				b.Plate,
				b.Alias,
				b.Active,
				b.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d vehicle(s)\n", len(buses))

		return nil
	},
}

// busDeactivateCmd retires a vehicle from the fleet
var busDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate a vehicle",
	Long: `Deactivate a vehicle, retiring it from the active fleet.

The vehicle and its inspection history are retained; it simply stops
accepting new inspection submissions and disappears from the default
listings.

Example:
  fleetctl bus deactivate --plate AB-123-CD`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plate := strings.ToUpper(strings.TrimSpace(busPlate))
		if plate == "" {
			return fmt.Errorf("--plate is required")
		}

		store, err := openDatabase(busDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		bus, err := store.Buses().GetByPlate(ctx, plate)
		if err != nil {
			return fmt.Errorf("find bus: %w", err)
		}
		if bus == nil {
			return fmt.Errorf("plate '%s' not found", plate)
		}

		if err := store.Buses().SetActive(ctx, bus.ID, false); err != nil {
			return fmt.Errorf("deactivate bus: %w", err)
		}

		fmt.Printf("Vehicle '%s' deactivated.\n", bus.Label())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(busCmd)
	busCmd.AddCommand(busAddCmd)
	busCmd.AddCommand(busListCmd)
	busCmd.AddCommand(busDeactivateCmd)

	for _, cmd := range []*cobra.Command{busAddCmd, busListCmd, busDeactivateCmd} {
		cmd.Flags().StringVar(&busDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	busAddCmd.Flags().StringVar(&busPlate, "plate", "", "license plate (required, stored uppercased)")
	busAddCmd.Flags().StringVar(&busAlias, "alias", "", "human-friendly label")
	busAddCmd.MarkFlagRequired("plate")

	busListCmd.Flags().BoolVar(&busAllFlag, "all", false, "include deactivated vehicles")

	busDeactivateCmd.Flags().StringVar(&busPlate, "plate", "", "license plate (required)")
	busDeactivateCmd.MarkFlagRequired("plate")
}
