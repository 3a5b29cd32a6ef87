package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/medicalhistory"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/patients"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, userError(fmt.Sprintf("%q is not a valid id.", s))
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, userError(fmt.Sprintf("%q is not a date, use YYYY-MM-DD.", s))
	}
	return d.UTC(), nil
}

func newPatientCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patient",
		Aliases: []string{"patients"},
		Short:   "Register and find patients",
	}

	var in patients.NewPatient
	var gender, dob string
	var age int
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a new patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, err := e.prompt.TextOr(in.FullName, "Full name")
			if err != nil {
				return err
			}
			in.FullName = strings.TrimSpace(name)
			in.Gender = models.Gender(gender)
			if dob != "" {
				d, err := parseDate(dob)
				if err != nil {
					return err
				}
				in.DateOfBirth = &d
			} else if cmd.Flags().Changed("age") {
				in.Age = &age
			}

			p, err := e.app.RegisterPatient(cmd.Context(), in)
			if err != nil {
				return err
			}
			success(e.out, "Registered %s (%s).", p.FullName, p.ID)
			return nil
		},
	}
	register.Flags().StringVar(&in.FullName, "name", "", "full name")
	register.Flags().StringVar(&gender, "gender", string(models.GenderFemale), "male, female or transgender")
	register.Flags().IntVar(&age, "age", 0, "age in years when the date of birth is unknown")
	register.Flags().StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD")
	register.Flags().StringVar(&in.PhoneNumber, "phone", "", "phone number")
	register.Flags().StringVar(&in.Address, "address", "", "street address")

	search := &cobra.Command{
		Use:   "search [name]",
		Short: "List patients whose name contains the query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := e.app.SearchPatients(cmd.Context(), strings.Join(args, ""))
			if err != nil {
				return err
			}
			if len(list) == 0 {
				warn(e.out, "No patients found.")
				return nil
			}
			tw := newTable(e.out, "ID", "NAME", "GENDER", "AGE", "STATUS", "SYNC")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.FullName, p.Gender, patientAge(p), p.Status, p.SyncStatus)
			}
			return tw.Flush()
		},
	}

	export := &cobra.Command{
		Use:   "export [name]",
		Short: "Write the matching patients to a JSON file in the files directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.app.ExportPatients(cmd.Context(), strings.Join(args, ""))
			if err != nil {
				return err
			}
			success(e.out, "Exported to %s.", path)
			return nil
		},
	}

	cmd.AddCommand(register, search, export)
	return cmd
}

func patientAge(p models.Patient) string {
	switch {
	case p.DateOfBirth != nil:
		return "b. " + p.DateOfBirth.Format(dateLayout)
	case p.Age != nil:
		return fmt.Sprint(*p.Age)
	}
	return "-"
}

func newBloodPressureCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bp",
		Short: "Record blood pressure measurements",
	}

	record := &cobra.Command{
		Use:   "record <patient-id> <systolic> <diastolic>",
		Short: "Record a measurement taken now",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := e.app.RecordBloodPressure(cmd.Context(), patientID, args[1], args[2])
			if err != nil {
				return err
			}
			success(e.out, "Recorded %d/%d (%s).", m.Systolic, m.Diastolic, m.ID)
			return nil
		},
	}

	correct := &cobra.Command{
		Use:   "correct <measurement-id> <systolic> <diastolic>",
		Short: "Fix the readings of a measurement",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.CorrectBloodPressure(cmd.Context(), id, args[1], args[2]); err != nil {
				return err
			}
			success(e.out, "Measurement updated.")
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <measurement-id>",
		Short: "Delete a measurement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.DeleteBloodPressure(cmd.Context(), id); err != nil {
				return err
			}
			success(e.out, "Measurement deleted.")
			return nil
		},
	}

	var limit int
	list := &cobra.Command{
		Use:   "list <patient-id>",
		Short: "Show the newest measurements of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := e.app.BloodPressureHistory(cmd.Context(), patientID, limit)
			if err != nil {
				return err
			}
			tw := newTable(e.out, "ID", "READING", "RECORDED", "SYNC")
			for _, m := range list {
				fmt.Fprintf(tw, "%s\t%d/%d\t%s\t%s\n",
					m.ID, m.Systolic, m.Diastolic, m.RecordedAt.Local().Format("2006-01-02 15:04"), m.SyncStatus)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 10, "number of measurements")

	cmd.AddCommand(record, correct, remove, list)
	return cmd
}

func newPrescriptionCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rx",
		Aliases: []string{"prescription"},
		Short:   "Manage prescribed drugs",
	}

	var dosage string
	var protocol bool
	add := &cobra.Command{
		Use:   "add <patient-id> <drug>",
		Short: "Prescribe a drug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var d *string
			if cmd.Flags().Changed("dosage") {
				d = &dosage
			}
			rx, err := e.app.Prescribe(cmd.Context(), patientID, args[1], d, protocol)
			if err != nil {
				return err
			}
			success(e.out, "Prescribed %s (%s).", rx.Name, rx.ID)
			return nil
		},
	}
	add.Flags().StringVar(&dosage, "dosage", "", "dosage, e.g. 10 mg")
	add.Flags().BoolVar(&protocol, "protocol", false, "the drug is part of the treatment protocol")

	list := &cobra.Command{
		Use:   "list <patient-id>",
		Short: "Show the current prescriptions of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := e.app.Prescriptions(cmd.Context(), patientID)
			if err != nil {
				return err
			}
			tw := newTable(e.out, "ID", "DRUG", "DOSAGE", "PROTOCOL", "SYNC")
			for _, rx := range list {
				dose := "-"
				if rx.Dosage != nil {
					dose = *rx.Dosage
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", rx.ID, rx.Name, dose, rx.IsProtocolDrug, rx.SyncStatus)
			}
			return tw.Flush()
		},
	}

	stop := &cobra.Command{
		Use:   "stop <prescription-id>",
		Short: "Stop a prescription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.StopPrescription(cmd.Context(), id); err != nil {
				return err
			}
			success(e.out, "Prescription stopped.")
			return nil
		},
	}

	cmd.AddCommand(add, list, stop)
	return cmd
}

func newAppointmentCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointment",
		Aliases: []string{"appt"},
		Short:   "Schedule follow-up visits",
	}

	var inDays int
	schedule := &cobra.Command{
		Use:   "schedule <patient-id> [YYYY-MM-DD]",
		Short: "Schedule the next visit of a patient",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			date := time.Now().UTC().AddDate(0, 0, inDays)
			if len(args) == 2 {
				if date, err = parseDate(args[1]); err != nil {
					return err
				}
			}
			a, err := e.app.ScheduleAppointment(cmd.Context(), patientID, date)
			if err != nil {
				return err
			}
			success(e.out, "Scheduled for %s (%s).", a.ScheduledDate.Format(dateLayout), a.ID)
			return nil
		},
	}
	schedule.Flags().IntVar(&inDays, "in-days", 30, "days from today when no date is given")

	var reason string
	cancel := &cobra.Command{
		Use:   "cancel <appointment-id>",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.CancelAppointment(cmd.Context(), id, models.AppointmentStatusReason(reason)); err != nil {
				return err
			}
			success(e.out, "Appointment cancelled.")
			return nil
		},
	}
	cancel.Flags().StringVar(&reason, "reason", string(models.StatusReasonOther),
		"not_called_yet, not_responding, moved, dead, invalid_phone_number or other")

	visited := &cobra.Command{
		Use:   "visited <appointment-id>",
		Short: "Mark an appointment as visited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.MarkAppointmentVisited(cmd.Context(), id); err != nil {
				return err
			}
			success(e.out, "Appointment marked as visited.")
			return nil
		},
	}

	next := &cobra.Command{
		Use:   "next <patient-id>",
		Short: "Show the scheduled appointment of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := e.app.NextAppointment(cmd.Context(), patientID)
			if errors.Is(err, common.ErrNotFound) {
				warn(e.out, "No appointment scheduled.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s on %s (%s)\n", a.ID, a.ScheduledDate.Format(dateLayout), a.Status)
			return nil
		},
	}

	cmd.AddCommand(schedule, cancel, visited, next)
	return cmd
}

func newHistoryCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Record the medical history of a patient",
	}

	var answers struct {
		hypertension, treatment, heartAttack, stroke, kidney, diabetes string
	}
	set := &cobra.Command{
		Use:   "set <patient-id>",
		Short: "Save medical history answers (yes, no or unknown)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := medicalhistory.Answers{}
			for _, f := range []struct {
				name string
				raw  string
				dst  *models.Answer
			}{
				{"hypertension", answers.hypertension, &in.DiagnosedWithHypertension},
				{"treatment", answers.treatment, &in.IsOnTreatmentForHypertension},
				{"heart-attack", answers.heartAttack, &in.HasHadHeartAttack},
				{"stroke", answers.stroke, &in.HasHadStroke},
				{"kidney-disease", answers.kidney, &in.HasHadKidneyDisease},
				{"diabetes", answers.diabetes, &in.HasDiabetes},
			} {
				a := models.ParseAnswer(strings.ToLower(f.raw))
				if !a.IsKnown() {
					return userError(fmt.Sprintf("--%s must be yes, no or unknown.", f.name))
				}
				*f.dst = a
			}

			if _, err := e.app.SaveMedicalHistory(cmd.Context(), patientID, in); err != nil {
				return err
			}
			success(e.out, "Medical history saved.")
			return nil
		},
	}
	set.Flags().StringVar(&answers.hypertension, "hypertension", "", "diagnosed with hypertension")
	set.Flags().StringVar(&answers.treatment, "treatment", "", "on treatment for hypertension")
	set.Flags().StringVar(&answers.heartAttack, "heart-attack", "", "has had a heart attack")
	set.Flags().StringVar(&answers.stroke, "stroke", "", "has had a stroke")
	set.Flags().StringVar(&answers.kidney, "kidney-disease", "", "has had kidney disease")
	set.Flags().StringVar(&answers.diabetes, "diabetes", "", "has diabetes")

	show := &cobra.Command{
		Use:   "show <patient-id>",
		Short: "Show the medical history of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0])
			if err != nil {
				return err
			}
			h, err := e.app.MedicalHistory(cmd.Context(), patientID)
			if err != nil {
				return err
			}
			tw := newTable(e.out, "QUESTION", "ANSWER")
			fmt.Fprintf(tw, "hypertension\t%s\n", h.DiagnosedWithHypertension)
			fmt.Fprintf(tw, "treatment\t%s\n", h.IsOnTreatmentForHypertension)
			fmt.Fprintf(tw, "heart attack\t%s\n", h.HasHadHeartAttack)
			fmt.Fprintf(tw, "stroke\t%s\n", h.HasHadStroke)
			fmt.Fprintf(tw, "kidney disease\t%s\n", h.HasHadKidneyDisease)
			fmt.Fprintf(tw, "diabetes\t%s\n", h.HasDiabetes)
			return tw.Flush()
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}
