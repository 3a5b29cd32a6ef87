// Package rpc is the wire contract shared by the sync client and the
// reference server: service and method names, request/response messages,
// and a codec that carries them as google.protobuf.Struct over gRPC.
package rpc

import (
	_ "embed"
	"fmt"
)

const packageName = "clinicsync.v1"

// ProtoFile is the contract the service descriptors are registered under.
const ProtoFile = "clinicsync/v1/sync.proto"

// Proto is the text of ProtoFile.
//
//go:embed clinicsync/v1/sync.proto
var Proto string

// Resource names one syncable entity type on the wire.
type Resource string

const (
	ResourcePatients         Resource = "patients"
	ResourceBloodPressures   Resource = "blood_pressures"
	ResourcePrescriptions    Resource = "prescription_drugs"
	ResourceAppointments     Resource = "appointments"
	ResourceMedicalHistories Resource = "medical_histories"
)

// Resources lists every resource, patients first: other records reference
// patient ids.
var Resources = []Resource{
	ResourcePatients,
	ResourceBloodPressures,
	ResourcePrescriptions,
	ResourceAppointments,
	ResourceMedicalHistories,
}

var serviceNames = map[Resource]string{
	ResourcePatients:         "PatientSync",
	ResourceBloodPressures:   "BloodPressureSync",
	ResourcePrescriptions:    "PrescriptionSync",
	ResourceAppointments:     "AppointmentSync",
	ResourceMedicalHistories: "MedicalHistorySync",
}

// Service returns the fully qualified sync service name of r.
func (r Resource) Service() string {
	name, ok := serviceNames[r]
	if !ok {
		panic(fmt.Sprintf("rpc: unknown resource %q", string(r)))
	}
	return packageName + "." + name
}

func (r Resource) Valid() bool {
	_, ok := serviceNames[r]
	return ok
}

// Sync service methods.
const (
	MethodPush = "Push"
	MethodPull = "Pull"
)

// UserService and its methods.
const (
	UserService = packageName + ".UserService"

	MethodRequestOtp = "RequestOtp"
	MethodLogin      = "Login"
	MethodRegister   = "Register"
	MethodFindUser   = "FindUser"
	MethodResetPin   = "ResetPin"
	MethodApprove    = "Approve"
)

// FullMethod builds the gRPC method path "/service/method".
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}
