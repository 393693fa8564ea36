// Copyright 2016 CodisLabs. All Rights Reserved.
// Licensed under the MIT (MIT-LICENSE.txt) license.

package topo

import (
	"path/filepath"
	"regexp"

	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

const TSOracleDir = "/tsoracle"

var namespaceRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{1,128}$`)

func ClusterDir(clusterName string) string {
	return filepath.Join(TSOracleDir, clusterName)
}

func TimestampBoundDir(clusterName string) string {
	return filepath.Join(TSOracleDir, clusterName, "timestamp_bound")
}

// TimestampBoundPath is the durable key holding the upper limit of one namespace.
func TimestampBoundPath(clusterName string, namespace string) string {
	return filepath.Join(TimestampBoundDir(clusterName), namespace)
}

// NormalizeNamespace maps the empty namespace to the default one and rejects
// names that cannot be used as a path element.
func NormalizeNamespace(namespace string) (string, error) {
	if namespace == "" {
		return consts.DefaultNamespace, nil
	}
	if !namespaceRegexp.MatchString(namespace) || namespace == "." || namespace == ".." {
		return "", errors.Annotatef(errors.ErrInvalidRequest, "invalid namespace %q", namespace)
	}
	return namespace, nil
}
