package handler

import (
	"fmt"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/permission"
)

func requireAdmin(actor model.Staff) error {
	if d := permission.CanAdminister(actor); !d.Allowed {
		return fmt.Errorf("admin task (%s): %w", d.Reason, model.ErrPermissionDenied)
	}
	return nil
}

func requireHIR(actor model.Staff) error {
	if d := permission.CanRecordHIR(actor); !d.Allowed {
		return fmt.Errorf("head-injury recording (%s): %w", d.Reason, model.ErrPermissionDenied)
	}
	return nil
}
