package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage enrolled students",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List students found in the faces directory",
	Long: `List the students whose reference photos are in FACES_DIR, with the
number of photos each one has.

Examples:
  face-attendance students list
  face-attendance students list --branch ECE --session 2023-2027
  face-attendance students list --search "jiri"`,
	Args: cobra.NoArgs,
	RunE: runStudentsList,
}

var studentsAddCmd = &cobra.Command{
	Use:   "add <image>...",
	Short: "Register a student from reference photos",
	Long: `Copy reference photos of a student into FACES_DIR under the
<reg_no>_<name>_<branch>_<session> folder. Run "train" afterwards to update
the gallery.

Examples:
  face-attendance students add --reg-no 21ECE042 --name "Asha Rao" \
    --branch ECE --session 2023-2027 front.jpg left.jpg right.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStudentsAdd,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsAddCmd)

	studentsListCmd.Flags().String("branch", "", "Only list students of this branch and session")
	studentsListCmd.Flags().String("session", "", "Only list students of this branch and session")
	studentsListCmd.Flags().String("search", "", "Filter by name or registration number")

	studentsAddCmd.Flags().String("reg-no", "", "Registration number")
	studentsAddCmd.Flags().String("name", "", "Full name")
	studentsAddCmd.Flags().String("branch", "", "Branch")
	studentsAddCmd.Flags().String("session", "", "Session, e.g. 2023-2027")
	_ = studentsAddCmd.MarkFlagRequired("reg-no")
	_ = studentsAddCmd.MarkFlagRequired("name")
	_ = studentsAddCmd.MarkFlagRequired("branch")
	_ = studentsAddCmd.MarkFlagRequired("session")
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	cohort, err := resolveCohort(cmd, cfg)
	if err != nil {
		return err
	}
	search := mustGetString(cmd, "search")

	samples, err := gallery.ScanFaces(cfg.Paths.FacesDir)
	if err != nil {
		return err
	}
	photos := make(map[string]int)
	for _, s := range samples {
		photos[s.Identity.Key()]++
	}

	filter := cohort.Filter()
	count := 0
	for _, id := range gallery.Roster(samples) {
		if !filter(id) || !id.MatchesQuery(search) {
			continue
		}
		fmt.Printf("%-12s %-30s %-12s %-10s %d photos\n", id.RegNo, id.Name, id.Branch, id.Session, photos[id.Key()])
		count++
	}
	fmt.Printf("\n%d students\n", count)
	return nil
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	branch := mustGetString(cmd, "branch")
	session := mustGetString(cmd, "session")
	if err := cfg.Cohorts.Validate(branch, session); err != nil {
		return err
	}

	id, err := roster.NewIdentity(mustGetString(cmd, "reg-no"), mustGetString(cmd, "name"), branch, session)
	if err != nil {
		return err
	}

	written, err := gallery.Enroll(cfg.Paths.FacesDir, id, args)
	if err != nil {
		return err
	}
	for _, p := range written {
		fmt.Printf("Saved %s\n", p)
	}
	fmt.Printf("Registered %s (%s) with %d photos. Run \"face-attendance train\" to update the gallery.\n",
		id, id.Cohort(), len(written))
	return nil
}
