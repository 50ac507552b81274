package naming

import "fmt"

const claimSuffix = "-pvc"

func Pod(workspace string) string {
	return workspace
}

func Service(workspace string) string {
	return workspace
}

func StorageClaim(workspace string) string {
	return fmt.Sprintf("%s%s", workspace, claimSuffix)
}

// PortName is used for ports declared without a name.
func PortName(containerPort int32) string {
	return fmt.Sprintf("port-%d", containerPort)
}
