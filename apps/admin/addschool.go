package main

import (
	"fmt"

	"github.com/vplan-fr/vplan/core/school"
)

func (cli *commandLine) addSchool(number, name, pwd string) error {
	ns := school.NewSchool{
		Number:          number,
		Name:            name,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := ns.Validate(cli.schoolSvc); err != nil {
		return err
	}
	sch, err := cli.schoolSvc.Create(ns)
	if err != nil {
		return err
	}
	fmt.Printf("school %s (%s) registered\n", sch.Number, sch.Name)
	return nil
}

func (cli *commandLine) setSchoolActive(number string, active bool) error {
	sch, err := cli.schoolSvc.SetActive(number, active)
	if err != nil {
		return err
	}
	status := "activated"
	if !active {
		status = "deactivated"
	}
	fmt.Printf("school %s (%s) %s\n", sch.Number, sch.Name, status)
	return nil
}

func (cli *commandLine) removeSchool(number string) error {
	sch, err := cli.schoolSvc.GetByNumber(number)
	if err != nil {
		return err
	}
	if err = cli.schoolSvc.Delete(sch.ID); err != nil {
		return err
	}
	fmt.Printf("school %s (%s) removed\n", sch.Number, sch.Name)
	return nil
}

func (cli *commandLine) listSchools() error {
	schools, err := cli.schoolSvc.QueryAll()
	if err != nil {
		return err
	}
	for _, sch := range schools {
		status := "active"
		if !sch.IsActive {
			status = "inactive"
		}
		fmt.Printf("%s\t%s\t%s\n", sch.Number, sch.Name, status)
	}
	return nil
}
