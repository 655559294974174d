// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package utils resolves protobuf message types from descriptor sets and
// carries the stream helpers shared by the protoarrow commands.
package utils

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// LoadFileDescriptorSet reads a serialized FileDescriptorSet, as written by
// protoc --descriptor_set_out, and builds a registry of its files.
func LoadFileDescriptorSet(path string) (*protoregistry.Files, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	files, err := ParseFileDescriptorSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return files, nil
}

// ParseFileDescriptorSet builds a registry from a serialized
// FileDescriptorSet. Imports missing from the set are taken from the
// files linked into the binary, so sets built without --include_imports
// still resolve the well known types.
func ParseFileDescriptorSet(data []byte) (*protoregistry.Files, error) {
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &fds); err != nil {
		return nil, fmt.Errorf("unmarshaling descriptor set: %w", err)
	}
	if err := addLinkedImports(&fds); err != nil {
		return nil, err
	}
	files, err := protodesc.NewFiles(&fds)
	if err != nil {
		return nil, fmt.Errorf("building descriptors: %w", err)
	}
	return files, nil
}

func addLinkedImports(fds *descriptorpb.FileDescriptorSet) error {
	known := make(map[string]bool, len(fds.GetFile()))
	for _, f := range fds.GetFile() {
		known[f.GetName()] = true
	}
	// fds.File grows while it is walked so imports of imports are added too.
	for i := 0; i < len(fds.File); i++ {
		for _, dep := range fds.File[i].GetDependency() {
			if known[dep] {
				continue
			}
			fd, err := protoregistry.GlobalFiles.FindFileByPath(dep)
			if err != nil {
				return fmt.Errorf("%s imports %s: %w", fds.File[i].GetName(), dep, err)
			}
			known[dep] = true
			fds.File = append(fds.File, protodesc.ToFileDescriptorProto(fd))
		}
	}
	return nil
}

// FindMessageType resolves the fully qualified name in files to a dynamic
// message type.
func FindMessageType(files *protoregistry.Files, name string) (protoreflect.MessageType, error) {
	d, err := files.FindDescriptorByName(protoreflect.FullName(name))
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", name, err)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%s is a %T, not a message", name, d)
	}
	return dynamicpb.NewMessageType(md), nil
}
