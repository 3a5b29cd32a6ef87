package datasync

import (
	"github.com/dmitrijs2005/clinicsync/internal/client/client"
	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
)

// Entities wires every local repository to its remote resource, patients
// first.
func Entities(repos *repositories.Repositories, c *client.GRPCClient, batchSize int, l logging.Logger) []EntitySync {
	tokens := repos.Metadata
	return []EntitySync{
		NewModelSync[models.Patient](rpc.ResourcePatients, repos.Patients,
			client.NewSyncAPI[models.Patient](c, rpc.ResourcePatients), tokens, batchSize, l),
		NewModelSync[models.BloodPressureMeasurement](rpc.ResourceBloodPressures, repos.BloodPressures,
			client.NewSyncAPI[models.BloodPressureMeasurement](c, rpc.ResourceBloodPressures), tokens, batchSize, l),
		NewModelSync[models.PrescribedDrug](rpc.ResourcePrescriptions, repos.Prescriptions,
			client.NewSyncAPI[models.PrescribedDrug](c, rpc.ResourcePrescriptions), tokens, batchSize, l),
		NewModelSync[models.Appointment](rpc.ResourceAppointments, repos.Appointments,
			client.NewSyncAPI[models.Appointment](c, rpc.ResourceAppointments), tokens, batchSize, l),
		NewModelSync[models.MedicalHistory](rpc.ResourceMedicalHistories, repos.MedicalHistories,
			client.NewSyncAPI[models.MedicalHistory](c, rpc.ResourceMedicalHistories), tokens, batchSize, l),
	}
}
